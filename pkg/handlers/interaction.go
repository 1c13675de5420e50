package handlers

import (
	"context"
	"fmt"

	"github.com/voxlane/vox/pkg/domain"
	"github.com/voxlane/vox/pkg/ports"
	"github.com/voxlane/vox/pkg/router"
)

// Interactions handles the interaction commands: component clicks,
// screen changes, and transcribed text notices. Each is a thin
// deterministic transform plus one durability call.
type Interactions struct {
	data ports.DataService
	config
}

// NewInteractions creates the interaction handler group.
func NewInteractions(data ports.DataService, opts ...Option) *Interactions {
	return &Interactions{data: data, config: newConfig(opts...)}
}

// Register binds the three interaction commands on the router.
func (h *Interactions) Register(r *router.Router) error {
	for method, handler := range map[domain.Method]router.Handler{
		domain.MethodComponentClick:  h.ComponentClick,
		domain.MethodScreenChange:    h.ScreenChange,
		domain.MethodTranscribedText: h.TranscribedText,
	} {
		if err := r.Register(method, handler); err != nil {
			return err
		}
	}
	return nil
}

type clickPayload struct {
	FileKey string `mapstructure:"fileKey"`
	FrameID string `mapstructure:"frameId"`
	NodeID  string `mapstructure:"nodeId"`
}

// ComponentClick records a click on a design component. It never
// mutates session state; the whole effect is one appended event.
func (h *Interactions) ComponentClick(ctx context.Context, sess *domain.Session, payload map[string]any) (map[string]any, error) {
	var p clickPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	switch {
	case p.FileKey == "":
		return nil, domain.MissingField("fileKey")
	case p.FrameID == "":
		return nil, domain.MissingField("frameId")
	case p.NodeID == "":
		return nil, domain.MissingField("nodeId")
	}

	event := domain.NewInteractionEvent(domain.EventComponentClick, sess.ID, payload, h.now())
	if err := h.persist(ctx, sess, event); err != nil {
		return nil, err
	}
	return map[string]any{"eventId": event.ID}, nil
}

type screenChangePayload struct {
	NewFrameID string `mapstructure:"newFrameId"`
	FileKey    string `mapstructure:"fileKey"`
}

// ScreenChange records navigation to a new frame. The in-memory
// mutation is applied before the durability call: navigation must never
// block on the data service. A persistence failure therefore surfaces
// alongside the frame ids, and the failed write goes to the spool.
func (h *Interactions) ScreenChange(ctx context.Context, sess *domain.Session, payload map[string]any) (map[string]any, error) {
	var p screenChangePayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if p.NewFrameID == "" {
		return nil, domain.MissingField("newFrameId")
	}

	previous := sess.CurrentFrame
	sess.CurrentFrame = p.NewFrameID
	h.enrichScreenName(ctx, sess, p.FileKey, p.NewFrameID)

	result := map[string]any{
		"previousFrameId": previous,
		"newFrameId":      p.NewFrameID,
	}
	if sess.CurrentScreen != "" {
		result["screenName"] = sess.CurrentScreen
	}

	event := domain.NewInteractionEvent(domain.EventScreenChange, sess.ID, payload, h.now())
	if err := h.persist(ctx, sess, event); err != nil {
		// The mutation stands; the caller sees both the outcome and
		// the persistence verdict.
		return result, err
	}
	result["eventId"] = event.ID
	return result, nil
}

// enrichScreenName resolves the human-readable frame name, best effort.
// A data service failure here is logged and ignored: enrichment never
// blocks or fails a navigation command.
func (h *Interactions) enrichScreenName(ctx context.Context, sess *domain.Session, fileKey, frameID string) {
	if fileKey == "" {
		return
	}
	frame, err := h.data.GetFrameData(ctx, sess.Meta.DatabaseID, fileKey, frameID)
	if err != nil {
		h.logger.Debug("frame enrichment skipped",
			"session_id", sess.ID,
			"frame_id", frameID,
			"err", err,
		)
		return
	}
	if name, ok := frame["name"].(string); ok && name != "" {
		sess.CurrentScreen = name
	}
}

type transcribedTextPayload struct {
	Text string `mapstructure:"text"`
}

// TranscribedText records a speech-to-text result. Acknowledgment only;
// transcripts never touch task state.
func (h *Interactions) TranscribedText(ctx context.Context, sess *domain.Session, payload map[string]any) (map[string]any, error) {
	var p transcribedTextPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if p.Text == "" {
		return nil, domain.MissingField("text")
	}

	event := domain.NewInteractionEvent(domain.EventTranscribedText, sess.ID, payload, h.now())
	if err := h.persist(ctx, sess, event); err != nil {
		return nil, err
	}
	return map[string]any{"eventId": event.ID}, nil
}

// persist appends one interaction event, spooling it on terminal
// failure and mapping the data client's verdict into the wire taxonomy.
func (h *Interactions) persist(ctx context.Context, sess *domain.Session, event domain.InteractionEvent) error {
	err := h.data.AppendInteractionEvent(ctx, sess.Meta.DatabaseID, sess.Meta.StudyID, sess.Meta.ParticipantID, event)
	if err == nil {
		return nil
	}
	h.spill(ctx, domain.EventWrite(sess.Meta, event, h.now()))
	h.notify(ctx, fmt.Sprintf("session %s: %s event not persisted: %v", sess.ID, event.Type, err))
	return &domain.PersistenceError{Classification: classification(err), Err: err}
}
