package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ROTl24/ai-web-generator/internal/apperr"
	"github.com/ROTl24/ai-web-generator/internal/generate"
	"github.com/ROTl24/ai-web-generator/internal/versions"
)

// SessionHeader carries the id of one generation stream.
const SessionHeader = "X-Session-Id"

// eventWriter frames Server-Sent Events. Headers are committed on the
// first frame, so a failure before any output can still be answered
// with a plain status code.
type eventWriter struct {
	w         http.ResponseWriter
	flusher   http.Flusher
	committed bool
}

func newEventWriter(w http.ResponseWriter) *eventWriter {
	f, _ := w.(http.Flusher)
	return &eventWriter{w: w, flusher: f}
}

func (e *eventWriter) commit() {
	if e.committed {
		return
	}
	h := e.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	e.w.WriteHeader(http.StatusOK)
	e.committed = true
}

// send writes one frame. An empty event name means the default
// "message" event.
func (e *eventWriter) send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	e.commit()

	var b strings.Builder
	if event != "" {
		fmt.Fprintf(&b, "event: %s\n", event)
	}
	fmt.Fprintf(&b, "data: %s\n\n", payload)
	if _, err := e.w.Write([]byte(b.String())); err != nil {
		return err
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}

// chunk is the payload of one streamed text fragment.
type chunk struct {
	D string `json:"d"`
}

// doneFrame closes a generation stream.
type doneFrame struct {
	AppID   int64  `json:"appId"`
	Version int    `json:"version"`
	Status  string `json:"status"`
}

// wantsEventStream reports whether the client asked for SSE.
func wantsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream") ||
		strings.Contains(r.Header.Get("Content-Type"), "text/event-stream")
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.NewString()
	w.Header().Set(SessionHeader, sessionID)
	ev := newEventWriter(w)

	fail := func(err error) {
		if ev.committed || wantsEventStream(r) {
			s.logger.Warn("generation stream failed", "session", sessionID, "error", err)
			_ = ev.send("error", bodyFor(err))
			return
		}
		s.writeError(w, err)
	}

	id, err := pathID(r)
	if err != nil {
		fail(err)
		return
	}
	q := r.URL.Query()
	req := generate.Request{AppID: id, Message: q.Get("message")}
	if t := q.Get("type"); t != "" {
		gt, err := versions.ParseGenType(t)
		if err != nil {
			fail(apperr.Validation("%v", err))
			return
		}
		req.GenType = gt
	}
	if u := q.Get("user"); u != "" {
		uid, err := strconv.ParseInt(u, 10, 64)
		if err != nil {
			fail(apperr.Validation("invalid user id %q", u))
			return
		}
		req.UserID = uid
	}

	s.logger.Info("generation started", "session", sessionID, "app_id", id)
	// A dropped client stops the frames, not the session: the version
	// still settles and the build still runs.
	ctx := context.WithoutCancel(r.Context())
	v, err := s.opts.Generator.Generate(ctx, req, func(text string) error {
		if err := r.Context().Err(); err != nil {
			return err
		}
		return ev.send("", chunk{D: text})
	})
	if err != nil {
		fail(err)
		return
	}

	done := doneFrame{AppID: id}
	if v != nil {
		done.Version = v.Number
		done.Status = string(v.Status)
	}
	_ = ev.send("done", done)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	project := r.URL.Query().Get("path")
	if project == "" {
		s.writeError(w, apperr.Validation("path is required"))
		return
	}
	events, cancel, err := s.opts.Builds.Watch(project)
	if err != nil {
		s.writeError(w, apperr.Validation("%v", err))
		return
	}
	defer cancel()

	ev := newEventWriter(w)
	ev.commit()
	if ev.flusher != nil {
		ev.flusher.Flush()
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := ev.send("progress", e); err != nil {
				return
			}
		}
	}
}
