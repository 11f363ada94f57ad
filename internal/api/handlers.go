package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/recordservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *recordservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *recordservice.Service) *Handler {
	return &Handler{svc: svc}
}

// collection resolves the {kind} URL parameter, writing a 404 when unknown.
func (h *Handler) collection(w http.ResponseWriter, r *http.Request) (recordservice.Collection, bool) {
	c, err := h.svc.Collection(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, "resolve kind", err)
		return nil, false
	}
	return c, true
}

// ListKinds handles GET /api/kinds.
//
//	@Summary		List registered record kinds
//	@Tags			kinds
//	@Produce		json
//	@Success		200	{object}	KindListResponse
//	@Security		BearerAuth
//	@Router			/kinds [get]
func (h *Handler) ListKinds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, KindListResponse{Kinds: h.svc.Describe()})
}

// Agent handles GET /api/agent.
//
//	@Summary		Address of the serving agent
//	@Tags			agent
//	@Produce		json
//	@Success		200	{object}	AddressResponse
//	@Security		BearerAuth
//	@Router			/agent [get]
func (h *Handler) Agent(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, AddressResponse{Address: h.svc.AgentAddress()})
}

// AnchorTypes handles GET /api/anchors/types.
//
//	@Summary		List anchor types
//	@Tags			anchors
//	@Produce		json
//	@Success		200	{object}	AnchorTypesResponse
//	@Security		BearerAuth
//	@Router			/anchors/types [get]
func (h *Handler) AnchorTypes(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.ListAnchorTypes(r.Context())
	if err != nil {
		writeError(w, "list anchor types", err)
		return
	}
	writeJSON(w, http.StatusOK, AnchorTypesResponse{Tags: tags})
}

// AnchorTypeAddresses handles GET /api/anchors/types/addresses.
//
//	@Summary		List type anchor addresses
//	@Tags			anchors
//	@Produce		json
//	@Success		200	{object}	AnchorAddressesResponse
//	@Security		BearerAuth
//	@Router			/anchors/types/addresses [get]
func (h *Handler) AnchorTypeAddresses(w http.ResponseWriter, r *http.Request) {
	addrs, err := h.svc.ListAnchorTypeAddresses(r.Context())
	if err != nil {
		writeError(w, "list anchor type addresses", err)
		return
	}
	writeJSON(w, http.StatusOK, AnchorAddressesResponse{Addresses: addrs})
}

// AnchorTags handles GET /api/anchors/{type}/tags.
//
//	@Summary		List the tags in use under an anchor type
//	@Tags			anchors
//	@Produce		json
//	@Param			type	path		string	true	"Anchor type"
//	@Success		200		{object}	AnchorTypesResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/anchors/{type}/tags [get]
func (h *Handler) AnchorTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.ListAnchorTags(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, "list anchor tags", err)
		return
	}
	writeJSON(w, http.StatusOK, AnchorTypesResponse{Tags: tags})
}

// AnchorAddresses handles GET /api/anchors/{type}/addresses.
//
//	@Summary		List the tag anchor addresses under an anchor type
//	@Tags			anchors
//	@Produce		json
//	@Param			type	path		string	true	"Anchor type"
//	@Success		200		{object}	AnchorAddressesResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/anchors/{type}/addresses [get]
func (h *Handler) AnchorAddresses(w http.ResponseWriter, r *http.Request) {
	addrs, err := h.svc.ListAnchorAddresses(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, "list anchor addresses", err)
		return
	}
	writeJSON(w, http.StatusOK, AnchorAddressesResponse{Addresses: addrs})
}

// ListRecords handles GET /api/records/{kind}.
//
//	@Summary		List the live records under a base
//	@Description	One record per live link, in link order. Duplicates may appear while updates race.
//	@Tags			records
//	@Produce		json
//	@Param			kind	path		string	true	"Record kind"
//	@Param			base	query		string	true	"Base key"
//	@Success		200		{object}	RecordListResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{kind} [get]
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	base := r.URL.Query().Get("base")
	if base == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("base is required"))
		return
	}
	recs, err := c.List(r.Context(), base)
	if err != nil {
		writeError(w, "list records", err)
		return
	}
	writeJSON(w, http.StatusOK, RecordListResponse{Records: recs})
}

// CreateRecord handles POST /api/records/{kind}.
//
//	@Summary		Create a record under a base
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			kind	path		string				true	"Record kind"
//	@Param			body	body		CreateRecordRequest	true	"Record to create"
//	@Success		201		{object}	Record
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{kind} [post]
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	var req CreateRecordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Base == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("base is required"))
		return
	}
	rec, err := c.Create(r.Context(), req.Base, req.Payload)
	if err != nil {
		writeError(w, "create record", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// ReadRecord handles GET /api/records/{kind}/{id}.
//
//	@Summary		Read a record by address
//	@Tags			records
//	@Produce		json
//	@Param			kind		path		string	true	"Record kind"
//	@Param			id			path		string	true	"Record address"
//	@Param			created_at	query		string	true	"Creation timestamp echoed in the result"
//	@Success		200			{object}	Record
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{kind}/{id} [get]
func (h *Handler) ReadRecord(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	id := models.Address(chi.URLParam(r, "id"))
	createdAt := models.Timestamp(r.URL.Query().Get("created_at"))
	rec, err := c.Read(r.Context(), id, createdAt)
	if err != nil {
		writeError(w, "read record", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// UpdateRecord handles PUT /api/records/{kind}/{id}.
//
//	@Summary		Write a new version of a record
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			kind	path		string				true	"Record kind"
//	@Param			id		path		string				true	"Address of the live version"
//	@Param			body	body		UpdateRecordRequest	true	"Handle and new payload"
//	@Success		200		{object}	Record
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{kind}/{id} [put]
func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	var req UpdateRecordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := models.Address(chi.URLParam(r, "id"))
	address := req.Address
	if address == "" {
		address = id
	}
	rec, err := c.Update(r.Context(), id, req.CreatedAt, address, req.Payload)
	if err != nil {
		writeError(w, "update record", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteRecord handles DELETE /api/records/{kind}/{id}.
//
//	@Summary		Remove a record from a base
//	@Tags			records
//	@Produce		json
//	@Param			kind		path		string	true	"Record kind"
//	@Param			id			path		string	true	"Record address"
//	@Param			base		query		string	true	"Base key"
//	@Param			created_at	query		string	true	"Creation timestamp"
//	@Param			address		query		string	false	"Entry to remove, defaults to id"
//	@Success		200			{object}	AddressResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{kind}/{id} [delete]
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	if q.Get("base") == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("base is required"))
		return
	}
	id := models.Address(chi.URLParam(r, "id"))
	address := models.Address(q.Get("address"))
	if address == "" {
		address = id
	}
	removed, err := c.Delete(r.Context(), q.Get("base"), id, models.Timestamp(q.Get("created_at")), address)
	if err != nil {
		writeError(w, "delete record", err)
		return
	}
	writeJSON(w, http.StatusOK, AddressResponse{Address: removed})
}

// RebaseRecord handles POST /api/records/{kind}/{id}/rebase.
//
//	@Summary		Move a record to another base
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			kind	path		string				true	"Record kind"
//	@Param			id		path		string				true	"Record address"
//	@Param			body	body		RebaseRecordRequest	true	"Source and destination bases"
//	@Success		200		{object}	AddressResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{kind}/{id}/rebase [post]
func (h *Handler) RebaseRecord(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	var req RebaseRecordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.BaseFrom == "" || req.BaseTo == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("base_from and base_to are required"))
		return
	}
	id := models.Address(chi.URLParam(r, "id"))
	moved, err := c.Rebase(r.Context(), req.BaseFrom, req.BaseTo, id, req.CreatedAt)
	if err != nil {
		writeError(w, "rebase record", err)
		return
	}
	writeJSON(w, http.StatusOK, AddressResponse{Address: moved})
}

// RecordVersions handles GET /api/records/{kind}/{id}/versions.
//
//	@Summary		List the successors of a record version
//	@Tags			records
//	@Produce		json
//	@Param			kind	path		string	true	"Record kind"
//	@Param			id		path		string	true	"Record address"
//	@Success		200		{object}	VersionsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{kind}/{id}/versions [get]
func (h *Handler) RecordVersions(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	links, err := c.Versions(r.Context(), models.Address(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, "record versions", err)
		return
	}
	writeJSON(w, http.StatusOK, VersionsResponse{Versions: links})
}
