package mcpserver

// RecordKindsContract describes the record kinds and the handle rules that
// LLM consumers should follow when calling the record tools.
const RecordKindsContract = `# Othala Record Contract

Records are immutable JSON payloads. Every record lives under a **base**: a
caller-chosen key such as ` + "`" + `project-1` + "`" + ` that groups records of one kind.

## Handles

Every create, update and list result carries:

- ` + "`" + `id` + "`" + ` – address of the live version
- ` + "`" + `created_at` + "`" + ` – ISO-8601 timestamp of the link that indexes it
- ` + "`" + `address` + "`" + ` – content address of the payload (equal to ` + "`" + `id` + "`" + ` after create/update)

Pass ` + "`" + `id` + "`" + ` and ` + "`" + `created_at` + "`" + ` together to read, update, delete or rebase. A handle is
only valid until the next successful update, delete or rebase of that record:
an update returns a **new** id and created_at.

## Kinds

| kind | payload fields |
|------|----------------|
| ` + "`" + `profile` + "`" + ` | ` + "`" + `handle` + "`" + ` (required, 1–64 chars), ` + "`" + `name` + "`" + `, ` + "`" + `avatar` + "`" + ` (URL), ` + "`" + `bio` + "`" + ` (≤1024 chars) |
| ` + "`" + `origin` + "`" + ` | ` + "`" + `title` + "`" + ` (required), ` + "`" + `description` + "`" + `, ` + "`" + `source` + "`" + ` (URL) |
| ` + "`" + `task` + "`" + ` | ` + "`" + `title` + "`" + ` (required), ` + "`" + `content` + "`" + `, ` + "`" + `done` + "`" + ` (bool) |
| ` + "`" + `column` + "`" + ` | ` + "`" + `uuid` + "`" + ` (required, UUIDv4), ` + "`" + `title` + "`" + ` (required), ` + "`" + `order` + "`" + ` (int ≥ 0) |

Unknown fields are rejected.

## Listing

` + "`" + `list_records` + "`" + ` returns one entry per live link, oldest first. While two agents
update the same record at once a list may briefly show both versions, or
neither; re-list to converge.

## Example

` + "```" + `json
{"kind": "task", "base": "project-1", "payload": "{\"title\": \"write report\"}"}
` + "```" + `
`
