package httpx

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/splax/modulehub/internal/domain"
	"github.com/splax/modulehub/internal/service/catalog"
)

func (r *Router) handlePackages(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.requireInfo(w, req)
	if !ok {
		return
	}
	pkgs, err := r.catalog.ListForUser(req.Context(), info.UserID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, pkgs)
}

func (r *Router) handlePackageSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(req.URL.Path, "/api/packages/"), "/")
	if trimmed == "" {
		r.handlePackages(w, req)
		return
	}
	parts := strings.Split(trimmed, "/")
	switch {
	case len(parts) == 1 && parts[0] == "publish":
		r.handlePublish(w, req)
	case len(parts) == 1 && parts[0] == "version":
		r.handlePublishVersion(w, req)
	case len(parts) == 1 && parts[0] == "stats":
		r.handleStats(w, req)
	case len(parts) == 1 && parts[0] == "search":
		r.handleSearch(w, req)
	case len(parts) == 1 && parts[0] == "subscribed":
		r.handleSubscribed(w, req)
	case len(parts) == 1:
		r.handlePackageDetails(w, req, parts[0])
	case len(parts) == 2 && parts[1] == "subscribe":
		r.handleSubscription(w, req, parts[0])
	default:
		r.notFound(w)
	}
}

func (r *Router) handlePublish(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.requireInfo(w, req)
	if !ok {
		return
	}
	var payload struct {
		Name          string   `json:"name"`
		Description   string   `json:"description"`
		Version       string   `json:"version"`
		Documentation string   `json:"documentation"`
		Dependencies  []string `json:"dependencies"`
	}
	if err := json.NewDecoder(io.LimitReader(req.Body, maxBodyBytes)).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	pkg, err := r.catalog.PublishPackage(req.Context(), info.UserID, catalog.PublishInput{
		Name:          payload.Name,
		Description:   payload.Description,
		Version:       payload.Version,
		Documentation: payload.Documentation,
		Dependencies:  payload.Dependencies,
	})
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

func (r *Router) handlePublishVersion(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.requireInfo(w, req)
	if !ok {
		return
	}
	var payload struct {
		PackageID string `json:"packageId"`
		Version   string `json:"version"`
		Changelog string `json:"changelog"`
	}
	if err := json.NewDecoder(io.LimitReader(req.Body, maxBodyBytes)).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	pkg, err := r.catalog.PublishVersion(req.Context(), info.UserID, catalog.VersionInput{
		PackageID: payload.PackageID,
		Version:   payload.Version,
		Changelog: payload.Changelog,
	})
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

func (r *Router) handleStats(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.requireInfo(w, req)
	if !ok {
		return
	}
	stats, err := r.catalog.Stats(req.Context(), info.UserID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (r *Router) handleSearch(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.requireInfo(w, req)
	if !ok {
		return
	}
	query := req.URL.Query()
	var (
		results []domain.PackageWithCompany
		err     error
	)
	switch query.Get("mode") {
	case "", "ranked":
		results, err = r.catalog.Search(req.Context(), info.UserID, query.Get("q"))
	case "quick":
		results, err = r.catalog.QuickSearch(req.Context(), info.UserID, query.Get("q"))
	default:
		err = domain.ValidationError("Unknown search mode")
	}
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (r *Router) handleSubscribed(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.requireInfo(w, req)
	if !ok {
		return
	}
	pkgs, err := r.subscriptions.ListSubscribed(req.Context(), info.UserID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, pkgs)
}

func (r *Router) handlePackageDetails(w http.ResponseWriter, req *http.Request, packageID string) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	pkg, err := r.catalog.Get(req.Context(), packageID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

func (r *Router) handleSubscription(w http.ResponseWriter, req *http.Request, packageID string) {
	info, ok := r.requireInfo(w, req)
	if !ok {
		return
	}
	var (
		ids []string
		err error
	)
	switch req.Method {
	case http.MethodPost:
		ids, err = r.subscriptions.Subscribe(req.Context(), info.UserID, packageID)
	case http.MethodDelete:
		ids, err = r.subscriptions.Unsubscribe(req.Context(), info.UserID, packageID)
	default:
		r.methodNotAllowed(w)
		return
	}
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func (r *Router) requireInfo(w http.ResponseWriter, req *http.Request) (authInfo, bool) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
	}
	return info, ok
}
