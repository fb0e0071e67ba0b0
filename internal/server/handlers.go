package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matzehuels/storyline/pkg/dialogue"
	errs "github.com/matzehuels/storyline/pkg/errors"
	dio "github.com/matzehuels/storyline/pkg/io"
	"github.com/matzehuels/storyline/pkg/pipeline"
	"github.com/matzehuels/storyline/pkg/session"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// =============================================================================
// Views
// =============================================================================

// nodeView is a line as the API returns it: the export record plus the
// editor-only handle, title and position.
type nodeView struct {
	Handle string `json:"handle"`
	Title  string `json:"title"`
	Index  int    `json:"index"`
	dialogue.Record
}

type edgeView struct {
	From   string `json:"from"`
	To     string `json:"to"`
	FromID string `json:"from_id,omitempty"`
	ToID   string `json:"to_id"`
	Kind   string `json:"kind"`
}

type referenceView struct {
	From   string `json:"from"`
	FromID string `json:"from_id,omitempty"`
	Field  string `json:"field"`
	Target string `json:"target"`
}

type warningView struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type nodeResponse struct {
	Node     nodeView      `json:"node"`
	Warnings []warningView `json:"warnings"`
}

func (s *Server) viewNode(n *dialogue.Node) nodeView {
	return nodeView{
		Handle: n.Handle.String(),
		Title:  n.Title,
		Index:  s.graph.Index(n),
		Record: n.Serialize(),
	}
}

func viewEdges(edges []dialogue.Edge) []edgeView {
	out := make([]edgeView, len(edges))
	for i, e := range edges {
		out[i] = edgeView{
			From:   e.From.Handle.String(),
			To:     e.To.Handle.String(),
			FromID: e.SourceID(),
			ToID:   e.TargetID(),
			Kind:   e.Kind.String(),
		}
	}
	return out
}

func viewWarnings(ws dialogue.Warnings) []warningView {
	out := make([]warningView, len(ws))
	for i, w := range ws {
		out[i] = warningView{Code: string(w.Code), Message: errs.UserMessage(w)}
	}
	return out
}

// =============================================================================
// Requests
// =============================================================================

type optionPatch struct {
	Text string `json:"text"`
	Jump string `json:"jump"`
}

// nodePatch is a partial update. Absent fields are left unchanged.
// set_var and jump_if accept either a JSON object or the raw text an
// author typed; both go through the same parser as the editor.
type nodePatch struct {
	ID      *string         `json:"id"`
	Speaker *string         `json:"speaker"`
	Text    *string         `json:"text"`
	OptionA *optionPatch    `json:"optionA"`
	OptionB *optionPatch    `json:"optionB"`
	OptionC *optionPatch    `json:"optionC"`
	SetVars json.RawMessage `json:"set_var"`
	Jump    *string         `json:"jump"`
	JumpIf  json.RawMessage `json:"jump_if"`
}

func (p nodePatch) update() (dialogue.Update, error) {
	u := dialogue.Update{
		ID:      p.ID,
		Speaker: p.Speaker,
		Text:    p.Text,
		Jump:    p.Jump,
	}
	for slot, o := range []*optionPatch{p.OptionA, p.OptionB, p.OptionC} {
		if o != nil {
			u.Options[slot] = &dialogue.OptionEdit{Text: o.Text, Jump: o.Jump}
		}
	}
	var err error
	if u.SetVars, err = mappingText(p.SetVars); err != nil {
		return u, errs.Wrap(errs.ErrCodeInvalidInput, err, "set_var")
	}
	if u.JumpIf, err = mappingText(p.JumpIf); err != nil {
		return u, errs.Wrap(errs.ErrCodeInvalidInput, err, "jump_if")
	}
	return u, nil
}

// mappingText converts a raw set_var or jump_if value to editor text. A
// JSON string is unquoted, null means empty, anything else is passed on.
func mappingText(raw json.RawMessage) (*string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	trimmed := bytes.TrimSpace(raw)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		return dialogue.String(""), nil
	case len(trimmed) > 0 && trimmed[0] == '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, err
		}
		return &text, nil
	}
	return dialogue.String(string(trimmed)), nil
}

func decodePatch(r *http.Request) (nodePatch, error) {
	var p nodePatch
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return p, nil
		}
		return p, errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid request body")
	}
	return p, nil
}

// lookupNode resolves the {handle} URL parameter. A value that is not a
// UUID is treated as a line id and resolved the way jumps are.
func (s *Server) lookupNode(r *http.Request) (*dialogue.Node, error) {
	param := chi.URLParam(r, "handle")
	if h, err := uuid.Parse(param); err == nil {
		if n, ok := s.graph.Node(h); ok {
			return n, nil
		}
	} else if n, ok := s.graph.Lookup(param); ok {
		return n, nil
	}
	return nil, errs.New(errs.ErrCodeNodeNotFound, "no line %q", param)
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	var lines int
	s.locked(func() { lines = s.graph.Len() })
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "lines": lines})
}

func (s *Server) listNodes(w http.ResponseWriter, r *http.Request) {
	var views []nodeView
	s.locked(func() {
		views = make([]nodeView, 0, s.graph.Len())
		for _, n := range s.graph.Nodes() {
			views = append(views, s.viewNode(n))
		}
	})
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) getNode(w http.ResponseWriter, r *http.Request) {
	var (
		view nodeView
		err  error
	)
	s.locked(func() {
		var n *dialogue.Node
		if n, err = s.lookupNode(r); err == nil {
			view = s.viewNode(n)
		}
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// createNode appends a line and applies the optional body as its first
// update. When that update is rejected the line is removed again.
func (s *Server) createNode(w http.ResponseWriter, r *http.Request) {
	p, err := decodePatch(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	u, err := p.update()
	if err != nil {
		respondError(w, r, err)
		return
	}

	var resp nodeResponse
	s.locked(func() {
		n := s.sess.Add()
		var warnings dialogue.Warnings
		if !u.IsEmpty() {
			if warnings, err = s.graph.UpdateNode(n, u); err != nil {
				s.graph.RemoveNode(n)
				return
			}
		}
		resp = nodeResponse{Node: s.viewNode(n), Warnings: viewWarnings(warnings)}
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) updateNode(w http.ResponseWriter, r *http.Request) {
	p, err := decodePatch(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	u, err := p.update()
	if err != nil {
		respondError(w, r, err)
		return
	}

	var resp nodeResponse
	s.locked(func() {
		var n *dialogue.Node
		if n, err = s.lookupNode(r); err != nil {
			return
		}
		var warnings dialogue.Warnings
		if warnings, err = s.graph.UpdateNode(n, u); err != nil {
			return
		}
		resp = nodeResponse{Node: s.viewNode(n), Warnings: viewWarnings(warnings)}
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request) {
	var err error
	s.locked(func() {
		var n *dialogue.Node
		if n, err = s.lookupNode(r); err != nil {
			return
		}
		if _, err = s.sess.Select(n); err != nil {
			return
		}
		s.sess.Remove()
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listEdges(w http.ResponseWriter, r *http.Request) {
	var edges []edgeView
	s.locked(func() { edges = viewEdges(s.graph.Edges()) })
	respondJSON(w, http.StatusOK, edges)
}

func (s *Server) listUnresolved(w http.ResponseWriter, r *http.Request) {
	var refs []referenceView
	s.locked(func() {
		for _, ref := range s.graph.Unresolved() {
			refs = append(refs, referenceView{
				From:   ref.From.Handle.String(),
				FromID: ref.From.ID,
				Field:  ref.Field,
				Target: ref.Target,
			})
		}
	})
	if refs == nil {
		refs = []referenceView{}
	}
	respondJSON(w, http.StatusOK, refs)
}

// getExport returns the export document without writing it anywhere.
func (s *Server) getExport(w http.ResponseWriter, r *http.Request) {
	var (
		data []byte
		err  error
	)
	s.locked(func() { data, err = dio.MarshalJSON(s.graph.Export()) })
	if err != nil {
		respondError(w, r, errs.Wrap(errs.ErrCodeExportFailed, err, "serialize dialogue"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// postExport writes the export document through the configured sink.
func (s *Server) postExport(w http.ResponseWriter, r *http.Request) {
	if s.sink == nil {
		respondError(w, r, errs.New(errs.ErrCodeUnsupported, "no export target configured"))
		return
	}
	var (
		res *exportView
		err error
	)
	s.locked(func() {
		var out *session.ExportResult
		if out, err = s.sess.Export(r.Context(), s.sink); err == nil {
			res = &exportView{
				Sink:       out.Sink,
				Lines:      out.Lines,
				Bytes:      out.Bytes,
				DurationMS: out.Duration.Milliseconds(),
				Warnings:   viewWarnings(out.Warnings),
			}
		}
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type exportView struct {
	Sink       string        `json:"sink"`
	Lines      int           `json:"lines"`
	Bytes      int           `json:"bytes"`
	DurationMS int64         `json:"duration_ms"`
	Warnings   []warningView `json:"warnings"`
}

var contentTypes = map[string]string{
	pipeline.FormatSVG: "image/svg+xml",
	pipeline.FormatPNG: "image/png",
	pipeline.FormatPDF: "application/pdf",
	pipeline.FormatDOT: "text/vnd.graphviz",
}

// render draws the dialogue in one format. Query parameters: format
// (default svg), detailed, unresolved, refresh.
func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := strings.ToLower(strings.TrimSpace(q.Get("format")))
	if format == "" {
		format = pipeline.FormatSVG
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		respondError(w, r, err)
		return
	}
	opts := pipeline.Options{
		Formats:    []string{format},
		Detailed:   queryBool(q.Get("detailed")),
		Unresolved: queryBool(q.Get("unresolved")),
		Refresh:    queryBool(q.Get("refresh")),
	}

	var (
		res *pipeline.Result
		err error
	)
	s.locked(func() { res, err = s.runner.Render(r.Context(), s.graph, opts) })
	if err != nil {
		respondError(w, r, err)
		return
	}

	cacheState := "miss"
	if res.CacheInfo.AllCached(opts.Formats) {
		cacheState = "hit"
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("X-Cache", cacheState)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Artifacts[format])
}

func queryBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

type speakerView struct {
	Name     string `json:"name"`
	Portrait string `json:"portrait"`
}

func (s *Server) listSpeakers(w http.ResponseWriter, r *http.Request) {
	reg := s.graph.Speakers()
	out := make([]speakerView, 0, len(reg))
	for _, name := range reg.Names() {
		portrait, _ := reg.Portrait(name)
		out = append(out, speakerView{Name: name, Portrait: portrait})
	}
	respondJSON(w, http.StatusOK, out)
}

type eventsResponse struct {
	Version uint64     `json:"version"`
	Nodes   []nodeView `json:"nodes"`
	Edges   []edgeView `json:"edges"`
}

// pollEvents long-polls for graph changes. Node updates and edge changes
// bump the version, so text-only edits are seen too. With
// ?since=N it answers at once when the version is past N; otherwise it waits
// for the next change, answering 204 on timeout.
func (s *Server) pollEvents(w http.ResponseWriter, r *http.Request) {
	version, changed := s.events.wait()

	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(w, r, errs.New(errs.ErrCodeInvalidInput, "since must be a version number"))
			return
		}
		if since < version {
			s.respondGraph(w)
			return
		}
	}

	timer := time.NewTimer(s.pollTimeout)
	defer timer.Stop()
	select {
	case <-changed:
		s.respondGraph(w)
	case <-timer.C:
		w.WriteHeader(http.StatusNoContent)
	case <-r.Context().Done():
	}
}

func (s *Server) respondGraph(w http.ResponseWriter) {
	var resp eventsResponse
	s.locked(func() {
		resp.Version, _ = s.events.wait()
		resp.Nodes = make([]nodeView, 0, s.graph.Len())
		for _, n := range s.graph.Nodes() {
			resp.Nodes = append(resp.Nodes, s.viewNode(n))
		}
		resp.Edges = viewEdges(s.graph.Edges())
	})
	respondJSON(w, http.StatusOK, resp)
}
