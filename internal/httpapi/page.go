package httpapi

import (
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/jakelee-bot/google-form-automation/internal/service"
)

var homeTemplate = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html>
<head>
  <title>License Quote Request</title>
  <style>
    body { font-family: Arial, sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; }
    textarea { width: 100%; height: 300px; }
    button { background: #4CAF50; color: white; padding: 10px 20px; border: none; cursor: pointer; }
    .status { margin-top: 20px; padding: 10px; border-radius: 5px; }
    .success { background: #d4edda; color: #155724; }
    .error { background: #f8d7da; color: #721c24; }
  </style>
</head>
<body>
  <h1>License Quote Request</h1>
  <form method="POST" action="/submit">
    <textarea name="message" placeholder="Paste the request message here...">{{.Message}}</textarea>
    <br><br>
    <button type="submit">Fill Form</button>
  </form>
  {{if .Status}}<div class="status {{if .OK}}success{{else}}error{{end}}">{{.Status}}</div>{{end}}
</body>
</html>
`))

type homeView struct {
	Message string
	Status  string
	OK      bool
}

func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, homeView{})
}

// handleSubmit runs the automation for a pasted message and renders the
// outcome on the same page.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBody)
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, homeView{Status: "Error: " + err.Error()})
		return
	}
	message := r.PostForm.Get("message")
	headless := s.opts.Headless
	resp := s.backend.Automate(r.Context(), service.AutomateRequest{Message: message, Headless: &headless})

	view := homeView{OK: resp.Success, Status: resp.Message}
	if resp.Success {
		view.Status = "Form submitted successfully!"
	} else {
		view.Message = message
		view.Status = "Error: " + resp.Message
	}
	s.render(w, automateStatus(resp), view)
}

func (s *Server) render(w http.ResponseWriter, status int, view homeView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := homeTemplate.Execute(w, view); err != nil {
		s.logger.Warn("render home page", zap.Error(err))
	}
}
