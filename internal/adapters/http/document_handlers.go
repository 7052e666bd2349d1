package httpadapter

import (
	"net/http"

	"github.com/kirillkom/doc-insight/internal/core/domain"
	"github.com/kirillkom/doc-insight/internal/infrastructure/extractor"
)

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.options.MaxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "read upload", err))
		return
	}
	defer file.Close()

	mimeType := fileHeader.Header.Get("Content-Type")
	if err := extractor.ValidateUpload(fileHeader.Filename, mimeType); err != nil {
		rt.writeError(w, r, err)
		return
	}

	doc, err := rt.ingest.Upload(r.Context(), ownerID, fileHeader.Filename, mimeType, fileHeader.Size, file)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	docs, err := rt.reader.List(r.Context(), ownerID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	doc, err := rt.reader.GetByID(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	if err := rt.deleter.Delete(r.Context(), ownerID, r.PathValue("id")); err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
