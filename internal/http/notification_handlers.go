package httpx

import "net/http"

func (r *Router) handleNotifications(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.requireInfo(w, req)
	if !ok {
		return
	}
	items, err := r.notifications.ListRecent(req.Context(), info.UserID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (r *Router) handleMarkRead(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPut {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.requireInfo(w, req)
	if !ok {
		return
	}
	if _, err := r.notifications.MarkAllRead(req.Context(), info.UserID); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "Marked as read"})
}
