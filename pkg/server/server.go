// Package server exposes MiniML sessions over websocket connections.
//
// Each connection owns one runtime.Session. Every text message is a JSON
// program tree; the server answers with one Reply per message, in order.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/thomasrohde/miniml/pkg/diagnostics"
	"github.com/thomasrohde/miniml/pkg/evaluator"
	"github.com/thomasrohde/miniml/pkg/runtime"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
)

// Reply is the JSON answer to one program.
type Reply struct {
	OK    bool            `json:"ok"`
	Name  string          `json:"name,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
	Text  string          `json:"text"`
	Code  string          `json:"code,omitempty"`
	Error string          `json:"error,omitempty"`
	Path  string          `json:"path,omitempty"`
}

// Server is an http.Handler serving /ws and /healthz.
type Server struct {
	env      evaluator.Env
	logger   *logrus.Logger
	log      *logrus.Entry
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// New creates a server whose sessions all start from env.
func New(env evaluator.Env, logger *logrus.Logger) *Server {
	s := &Server{
		env:    env,
		logger: logger,
		log:    logger.WithField("component", "server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		mux: http.NewServeMux(),
	}
	s.mux.HandleFunc("/ws", s.handleWS)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	sess := runtime.New(
		runtime.WithID(uuid.NewString()),
		runtime.WithLogger(s.logger),
		runtime.WithEnvironment(s.env),
	)
	log := s.log.WithFields(logrus.Fields{"session_id": sess.ID(), "remote": r.RemoteAddr})
	log.Info("session opened")
	defer log.Info("session closed")

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("read failed")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		reply := Evaluate(sess, data)
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(reply); err != nil {
			log.WithError(err).Warn("write failed")
			return
		}
	}
}

// Evaluate decodes one program and evaluates it in sess.
func Evaluate(sess *runtime.Session, data []byte) Reply {
	progs, err := runtime.Decode(data)
	if err != nil {
		return errorReply(err)
	}
	if len(progs) != 1 {
		return Reply{Code: diagnostics.EDecode, Error: "expected exactly one program", Text: "error!: expected exactly one program"}
	}

	res, err := sess.Eval(progs[0])
	if err != nil {
		return errorReply(err)
	}
	value, _ := evaluator.ValueToJSON(res.Value)
	return Reply{
		OK:    true,
		Name:  res.Name,
		Value: value,
		Text:  runtime.FormatResult(res),
	}
}

func errorReply(err error) Reply {
	reply := Reply{Error: err.Error(), Text: runtime.FormatError(err)}

	var ee *evaluator.EvalError
	var de *runtime.DiagnosticError
	switch {
	case errors.As(err, &ee):
		reply.Code = ee.Code
		reply.Path = ee.Path
	case errors.As(err, &de) && len(de.Diagnostics) > 0:
		reply.Code = de.Diagnostics[0].Code
		reply.Path = de.Diagnostics[0].Path
		reply.Error = de.Diagnostics[0].Message
		reply.Text = runtime.FormatError(errors.New(reply.Error))
	}
	return reply
}
