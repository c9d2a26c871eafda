package resolver

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sustainet/sustainet/internal/errors"
	"github.com/sustainet/sustainet/internal/game"
)

// snapshotValidate checks decoded snapshots before they reach the session.
var snapshotValidate = validator.New()

// -----------------------------------------------------------------------------
// Requests
// -----------------------------------------------------------------------------

type articleDTO struct {
	Title           string `json:"title"`
	Content         string `json:"content"`
	Author          string `json:"author"`
	PublishedDate   string `json:"published_date"`
	TargetPlatform  string `json:"target_platform,omitempty"`
	PolishedContent string `json:"polished_content,omitempty"`
	ImageURL        string `json:"image_url,omitempty"`
	Source          string `json:"source,omitempty"`
	Requirement     string `json:"requirement,omitempty"`
	Veracity        string `json:"veracity,omitempty"`
}

type toolUsedDTO struct {
	ToolName string `json:"tool_name" validate:"required"`
}

type playerTurnRequest struct {
	SessionID   string        `json:"session_id"`
	RoundNumber int           `json:"round_number"`
	ActionType  string        `json:"action_type"`
	Article     articleDTO    `json:"article"`
	ToolUsed    []toolUsedDTO `json:"tool_used"`
}

type nextRoundRequest struct {
	SessionID   string `json:"session_id"`
	RoundNumber int    `json:"round_number"`
}

type polishRequest struct {
	SessionID    string `json:"session_id"`
	Content      string `json:"content"`
	Requirements string `json:"requirements,omitempty"`
	Platform     string `json:"platform,omitempty"`
}

type polishResponse struct {
	OriginalContent string   `json:"original_content"`
	PolishedContent string   `json:"polished_content"`
	Suggestions     []string `json:"suggestions"`
}

// -----------------------------------------------------------------------------
// Round response
// -----------------------------------------------------------------------------

type platformSetupDTO struct {
	Name     string `json:"name"`
	Platform string `json:"platform"`
	Audience string `json:"audience"`
}

type platformStatusDTO struct {
	PlatformName string `json:"platform_name" validate:"required"`
	PlayerTrust  int    `json:"player_trust"`
	AITrust      int    `json:"ai_trust"`
	SpreadRate   int    `json:"spread_rate"`
}

type toolDTO struct {
	ToolName           string  `json:"tool_name" validate:"required"`
	Description        string  `json:"description"`
	TrustEffect        float64 `json:"trust_effect"`
	SpreadEffect       float64 `json:"spread_effect"`
	ApplicableTo       string  `json:"applicable_to" validate:"omitempty,oneof=player ai both"`
	AvailableFromRound int     `json:"available_from_round"`
}

type gameEndDTO struct {
	IsEnded bool   `json:"is_ended"`
	Reason  string `json:"reason"`
	Winner  string `json:"winner"`
}

// roundResponse is the server's BaseRoundResponse.
type roundResponse struct {
	SessionID         string              `json:"session_id" validate:"required"`
	RoundNumber       int                 `json:"round_number" validate:"gte=1"`
	Actor             string              `json:"actor" validate:"oneof=player ai"`
	Article           *articleDTO         `json:"article"`
	TrustChange       int                 `json:"trust_change"`
	ReachCount        int                 `json:"reach_count" validate:"gte=0"`
	SpreadChange      int                 `json:"spread_change"`
	PlatformSetup     []platformSetupDTO  `json:"platform_setup"`
	PlatformStatus    []platformStatusDTO `json:"platform_status" validate:"dive"`
	ToolUsed          []toolUsedDTO       `json:"tool_used" validate:"dive"`
	ToolList          []toolDTO           `json:"tool_list" validate:"dive"`
	Effectiveness     string              `json:"effectiveness" validate:"omitempty,oneof=low medium high"`
	SimulatedComments []string            `json:"simulated_comments"`
	GameEndInfo       *gameEndDTO         `json:"game_end_info"`
}

// normalize lowercases enumerations the server does not case consistently.
func (r *roundResponse) normalize() {
	r.Actor = strings.ToLower(strings.TrimSpace(r.Actor))
	r.Effectiveness = strings.ToLower(strings.TrimSpace(r.Effectiveness))
	for i := range r.ToolList {
		r.ToolList[i].ApplicableTo = strings.ToLower(r.ToolList[i].ApplicableTo)
	}
}

// validate reports schema violations as ErrMalformedSnapshot.
func (r *roundResponse) validate() error {
	if err := snapshotValidate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", errors.ErrMalformedSnapshot, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", errors.ErrMalformedSnapshot, err)
	}
	return nil
}

func (r *roundResponse) toSnapshot() game.Snapshot {
	s := game.Snapshot{
		SessionID:          r.SessionID,
		RoundNumber:        r.RoundNumber,
		Actor:              game.Actor(r.Actor),
		Effectiveness:      game.Effectiveness(r.Effectiveness),
		ReachCount:         r.ReachCount,
		TrustChange:        r.TrustChange,
		SpreadChange:       r.SpreadChange,
		SimulatedReactions: append([]string(nil), r.SimulatedComments...),
	}
	if r.Article != nil {
		a := r.Article.toArticle()
		s.Article = &a
	}
	for _, p := range r.PlatformSetup {
		name := p.Name
		if name == "" {
			name = p.Platform
		}
		s.PlatformSetup = append(s.PlatformSetup, game.PlatformSetup{Name: name, Audience: p.Audience})
	}
	for _, p := range r.PlatformStatus {
		s.PlatformStatus = append(s.PlatformStatus, game.PlatformStatus{
			Name:        p.PlatformName,
			PlayerTrust: p.PlayerTrust,
			AITrust:     p.AITrust,
			SpreadRate:  p.SpreadRate,
		})
	}
	for _, t := range r.ToolList {
		from := t.AvailableFromRound
		if from < 1 {
			from = 1
		}
		s.Tools = append(s.Tools, game.Tool{
			Name:               t.ToolName,
			Description:        t.Description,
			TrustEffect:        t.TrustEffect,
			SpreadEffect:       t.SpreadEffect,
			ApplicableTo:       t.ApplicableTo,
			AvailableFromRound: from,
		})
	}
	for _, t := range r.ToolUsed {
		s.ToolsUsed = append(s.ToolsUsed, t.ToolName)
	}
	if r.GameEndInfo != nil {
		s.EndInfo = &game.EndInfo{
			Ended:  r.GameEndInfo.IsEnded,
			Reason: r.GameEndInfo.Reason,
			Winner: r.GameEndInfo.Winner,
		}
	}
	return s
}

func (a articleDTO) toArticle() game.Article {
	return game.Article{
		Title:           a.Title,
		Content:         a.Content,
		Author:          a.Author,
		PublishedDate:   a.PublishedDate,
		TargetPlatform:  a.TargetPlatform,
		PolishedContent: a.PolishedContent,
		ImageURL:        a.ImageURL,
		Source:          a.Source,
		Requirement:     a.Requirement,
		Veracity:        a.Veracity,
	}
}

func fromArticle(a game.Article) articleDTO {
	return articleDTO{
		Title:           a.Title,
		Content:         a.Content,
		Author:          a.Author,
		PublishedDate:   a.PublishedDate,
		TargetPlatform:  a.TargetPlatform,
		PolishedContent: a.PolishedContent,
		ImageURL:        a.ImageURL,
		Source:          a.Source,
		Requirement:     a.Requirement,
		Veracity:        a.Veracity,
	}
}

func fromTools(names []string) []toolUsedDTO {
	out := make([]toolUsedDTO, 0, len(names))
	for _, n := range names {
		out = append(out, toolUsedDTO{ToolName: n})
	}
	return out
}

// -----------------------------------------------------------------------------
// Error bodies
// -----------------------------------------------------------------------------

// remoteMessage extracts a human-readable reason from an error body. The
// server reports {"detail": "..."}, {"message": "..."}, or a validation list
// {"detail": [{"msg": "..."}]}.
func remoteMessage(body map[string]any) string {
	for _, key := range []string{"detail", "message", "error"} {
		switch v := body[key].(type) {
		case string:
			return v
		case []any:
			var msgs []string
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					if msg, ok := m["msg"].(string); ok {
						msgs = append(msgs, msg)
					}
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	return ""
}
