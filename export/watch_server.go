package export

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"k8s.io/klog/v2"

	"github.com/CloudDetail/kubecrud/client"
	"github.com/CloudDetail/kubecrud/handler"
	"github.com/CloudDetail/kubecrud/model/resource"
	"github.com/CloudDetail/kubecrud/monitoring"
)

const (
	DefaultHeartbeat = 30 * time.Second

	writeWait = 10 * time.Second
)

// EventSource opens a change stream on one collection.
type EventSource interface {
	Watch(ctx context.Context, kind string, namespace string) (<-chan resource.ResourceEvent, error)
}

// WatchServer relays collection changes to websocket clients.
type WatchServer struct {
	ctx    context.Context
	cancel context.CancelFunc

	upgrader  *websocket.Upgrader
	source    EventSource
	heartbeat time.Duration

	registered   atomic.Int64
	unregistered atomic.Int64

	watchers sync.Map
}

func NewWatchServer(source EventSource, heartbeat time.Duration) *WatchServer {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WatchServer{
		ctx:       ctx,
		cancel:    cancel,
		upgrader:  &websocket.Upgrader{},
		source:    source,
		heartbeat: heartbeat,
	}
}

// WatchWithWS serves GET /watch_resources/{namespace}/{kind}. The upstream
// watch is opened before the upgrade so its failures keep the usual
// status codes and message bodies.
func (s *WatchServer) WatchWithWS(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	events, err := s.source.Watch(ctx, r.PathValue("kind"), r.PathValue("namespace"))
	if err != nil {
		writeMessage(w, handler.StatusCode(err), err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		klog.ErrorS(err, "websocket upgrade failed", "remote", r.RemoteAddr)
		return
	}
	defer conn.Close()

	// Unblock the first read if the stream ends before the client speaks.
	unblock := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	watcher, err := s.RegisterWatcher(conn)
	unblock()
	if err != nil {
		klog.ErrorS(err, "read watch request failed", "remote", conn.RemoteAddr().String())
		return
	}
	defer s.UnregisterWatcher(watcher)
	klog.InfoS("add watcher", "remote", conn.RemoteAddr().String(), "kind", r.PathValue("kind"),
		"namespace", r.PathValue("namespace"), "watchers", s.Count())

	go watcher.drain(cancel)
	watcher.keepPush(ctx, events, s.heartbeat)
}

// Count returns the number of open streams.
func (s *WatchServer) Count() int64 {
	return s.registered.Load() - s.unregistered.Load()
}

func (s *WatchServer) RegisterWatcher(conn *websocket.Conn) (*Watcher, error) {
	var request resource.WatchRequest
	if err := conn.ReadJSON(&request); err != nil {
		return nil, err
	}

	watcher := &Watcher{
		ID:         s.registered.Add(1),
		Operations: operationsMap(request.Operations),
		conn:       conn,
	}
	s.watchers.Store(watcher.ID, watcher)
	monitoring.WatchStreamOpened()
	return watcher, nil
}

func (s *WatchServer) UnregisterWatcher(watcher *Watcher) {
	if watcher.isClosed.Swap(true) {
		return
	}
	s.watchers.Delete(watcher.ID)
	s.unregistered.Add(1)
	monitoring.WatchStreamClosed()
	klog.InfoS("unregister watcher", "remote", watcher.conn.RemoteAddr().String(), "watchers", s.Count())
}

// Stop ends every open stream.
func (s *WatchServer) Stop() {
	s.cancel()
}

func operationsMap(ops []resource.ResOperation) map[resource.ResOperation]struct{} {
	if len(ops) == 0 {
		return nil
	}
	opMap := make(map[resource.ResOperation]struct{}, len(ops))
	for _, op := range ops {
		opMap[op] = struct{}{}
	}
	return opMap
}

type Watcher struct {
	ID int64

	isClosed atomic.Bool

	// nil means every operation
	Operations map[resource.ResOperation]struct{}

	conn *websocket.Conn
}

func (w *Watcher) wants(op resource.ResOperation) bool {
	if w.Operations == nil {
		return true
	}
	_, ok := w.Operations[op]
	return ok
}

// drain reads until the client goes away so control frames get handled.
func (w *Watcher) drain(cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (w *Watcher) keepPush(ctx context.Context, events <-chan resource.ResourceEvent, heartbeat time.Duration) {
	heartBeatTicker := time.NewTicker(heartbeat)
	defer heartBeatTicker.Stop()
	for {
		select {
		case <-heartBeatTicker.C:
			if err := w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				klog.V(1).InfoS("watcher failed at heart beat", "remote", w.conn.RemoteAddr().String(), "err", err)
				return
			}
		case <-ctx.Done():
			w.close(websocket.CloseGoingAway, "")
			return
		case event, ok := <-events:
			if !ok {
				w.close(websocket.CloseNormalClosure, "watch ended")
				return
			}
			if !w.wants(event.Operation) {
				continue
			}
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteJSON(event); err != nil {
				klog.V(1).InfoS("push event failed", "remote", w.conn.RemoteAddr().String(), "err", err)
				return
			}
		}
	}
}

func (w *Watcher) close(code int, text string) {
	_ = w.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
}

func writeMessage(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(client.MessageResponse{Message: message})
}
