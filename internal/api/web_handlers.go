package api

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	domainerrors "github.com/patchouli-app/patchouli-server/internal/errors"
	"github.com/patchouli-app/patchouli-server/internal/service"
)

//go:embed templates/*.html
var templates embed.FS

// handleAuthorize starts a browser handshake and redirects to the identity
// provider. Non-browser clients use the client_credentials grant instead.
// GET /auth/authorize?registration=true&invite_code=...
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	resp, err := s.services.Auth.Start(r.Context(), service.StartRequest{
		Registration: q.Get("registration") == "true",
		InviteCode:   q.Get("invite_code"),
	})
	if err != nil {
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) {
			http.Error(w, string(domainErr.Code)+": "+domainErr.Message, domainErr.HTTPStatus())
			return
		}
		s.logger.Error("Failed to start handshake", "error", err)
		http.Error(w, "Failed to start authentication", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, resp.AuthURL, http.StatusFound)
}

// callbackPageData contains data for the OAuth landing page template.
type callbackPageData struct {
	Success     bool
	ServerName  string
	DisplayName string
	ErrorCode   string
	Message     string
}

// handleOAuthCallback finishes a handshake after the provider redirects the
// browser back. The outcome is rendered as a landing page; when the
// handshake was started by a non-browser client, the bound handle receives
// the result and the page just tells the user to return to their app.
// GET /oauth/callback?code=...&state=...
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	data := callbackPageData{
		ServerName: s.config.Server.Name,
	}

	if errParam := q.Get("error"); errParam != "" {
		// Provider-side denial; there is no state consumption to do since
		// the user never completed the provider flow.
		data.ErrorCode = string(domainerrors.CodeProviderError)
		data.Message = "The identity provider reported an error: " + errParam
		s.renderCallbackPage(w, data)
		return
	}

	grant, err := s.services.Auth.CompleteCallback(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) {
			data.ErrorCode = string(domainErr.Code)
			data.Message = domainErr.Message
		} else {
			s.logger.Error("Callback failed", "error", err)
			data.ErrorCode = string(domainerrors.CodeInternal)
			data.Message = "Something went wrong completing sign-in."
		}
		s.renderCallbackPage(w, data)
		return
	}

	data.Success = true
	data.DisplayName = grant.User.DisplayName
	s.renderCallbackPage(w, data)
}

// renderCallbackPage renders the OAuth landing page.
func (s *Server) renderCallbackPage(w http.ResponseWriter, data callbackPageData) {
	tmpl, err := template.ParseFS(templates, "templates/callback.html")
	if err != nil {
		s.logger.Error("Failed to parse callback template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if !data.Success {
		w.WriteHeader(http.StatusBadRequest)
	}
	if err := tmpl.Execute(w, data); err != nil {
		s.logger.Error("Failed to execute callback template", "error", err)
	}
}
