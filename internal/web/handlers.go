package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/group"
	"github.com/hpungsan/tabstash/internal/notify"
	"github.com/hpungsan/tabstash/internal/ops"
	"github.com/hpungsan/tabstash/internal/protocol"
	"github.com/hpungsan/tabstash/internal/tabhost"
)

// maxBodyBytes bounds request bodies. Exports of large collections fit comfortably.
const maxBodyBytes = 16 << 20

// eventBuffer is the per-connection event queue on /events.
const eventBuffer = 32

// writeTimeout bounds a single websocket write.
const writeTimeout = 5 * time.Second

// Handlers contains HTTP route handlers.
type Handlers struct {
	engine     *ops.Engine
	dispatcher *protocol.Dispatcher
	snapshot   *tabhost.Snapshot
	events     *notify.Broadcaster
	renderer   *Renderer
	logger     *slog.Logger
}

// HandleOverview handles GET /: every group, most recently used first.
func (h *Handlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	groups, err := h.engine.GetGroups(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderMarkdownPage(w, "Groups", "groups", group.RenderMarkdown(group.Sorted(groups, group.SortRecent)))
}

// HandleList handles GET /groups: list groups with sort, query, filter and limit.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.engine.ListGroups(r.Context(), ops.ListGroupsInput{
		Sort:   group.SortOrder(q.Get("sort")),
		Query:  q.Get("q"),
		Filter: q.Get("filter"),
		Limit:  parseIntParam(r, "limit", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	groups := make([]*group.Group, 0, len(result.Items))
	for _, item := range result.Items {
		groups = append(groups, item.Group)
	}
	h.renderer.renderMarkdownPage(w, "Groups", "groups", group.RenderMarkdown(groups))
}

// HandleDetail handles GET /groups/{id}: view a single group.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("group id is required"))
		return
	}

	view, err := h.engine.GetGroup(r.Context(), id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, view)
		return
	}
	h.renderer.renderMarkdownPage(w, view.Name, "groups", group.RenderMarkdown([]*group.Group{view.Group}))
}

// HandleDelete handles DELETE /groups/{id}: move a group to the recovery buffer.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.DeleteGroup(r.Context(), ops.DeleteGroupInput{ID: r.PathValue("id")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	http.Redirect(w, r, "/groups", http.StatusFound)
}

// HandleDeleted handles GET /deleted: the recovery buffer, oldest first.
func (h *Handlers) HandleDeleted(w http.ResponseWriter, r *http.Request) {
	entries, err := h.engine.RecentlyDeleted(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if entries == nil {
		entries = []group.DeletedEntry{}
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"items": entries, "count": len(entries)})
		return
	}

	var b strings.Builder
	b.WriteString("# Recently deleted\n\n")
	if len(entries) == 0 {
		b.WriteString("_Nothing to restore._\n")
	}
	for i, entry := range entries {
		fmt.Fprintf(&b, "%d. %s (%d tabs, deleted %s)\n",
			i+1, escapeText(entry.Group.Name), len(entry.Group.Tabs), formatMillis(entry.DeletedAt))
	}
	h.renderer.renderMarkdownPage(w, "Recently deleted", "deleted", b.String())
}

// HandleCommand handles POST /command: one browser command in the message protocol.
func (h *Handlers) HandleCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeResult(w, protocol.Failure(errors.NewInvalidRequest("request body too large or unreadable")))
		return
	}

	cmd, err := protocol.Decode(body)
	if err != nil {
		writeResult(w, protocol.Failure(err))
		return
	}
	writeResult(w, h.dispatcher.Dispatch(r.Context(), cmd))
}

// TabsRequest is the PUT /tabs body.
type TabsRequest struct {
	Tabs []group.Tab `json:"tabs"`
}

// HandlePutTabs handles PUT /tabs: the browser reports its current window.
func (h *Handlers) HandlePutTabs(w http.ResponseWriter, r *http.Request) {
	if h.snapshot == nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("no tab snapshot is configured"))
		return
	}

	var req TabsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid tabs body: "+err.Error()))
		return
	}
	h.snapshot.SetTabs(req.Tabs)
	w.WriteHeader(http.StatusNoContent)
}

// HandleEvents handles GET /events: a websocket feed of change events.
// Clients only read; anything they send is discarded.
func (h *Handlers) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("event feed is not enabled"))
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	sub := h.events.Subscribe(eventBuffer)
	defer sub.Close()

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := writeEvent(ctx, conn, ev); err != nil {
				h.logger.Debug("event write failed", "error", err)
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev notify.Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}

// writeResult writes a protocol result with the status of its error, if any.
func writeResult(w http.ResponseWriter, res protocol.Result) {
	status := http.StatusOK
	if res.Error != nil {
		status = res.Error.Status
	}
	renderJSON(w, status, res)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

var textEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`, "<", `\<`, "`", "\\`")

func escapeText(s string) string {
	return textEscaper.Replace(s)
}
