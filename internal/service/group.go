package service

import (
	"context"
	"time"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
)

const (
	defaultResponseProbability = 0.9
	responseDelayJitterMs      = 300
)

// SendGroupChatMessage picks who answers in a multi-character room and lets
// them reply one after another, so later speakers see earlier replies
func (s *ChatService) SendGroupChatMessage(ctx context.Context, room *models.Room) error {
	log := s.log.WithRoom(room.ID)
	gs := room.EffectiveGroupSettings()

	if s.random() >= gs.ResponseFrequency {
		log.Debug("group gate closed", "frequency", gs.ResponseFrequency)
		return nil
	}

	members, err := s.store.GetCharacters(ctx, room.MemberIDs)
	if err != nil {
		return err
	}
	responders := s.pickResponders(members, gs)
	if len(responders) == 0 {
		log.Debug("no participant chose to respond")
		return nil
	}

	for i, c := range responders {
		if i > 0 {
			if err := s.sleep(ctx, s.responseDelay(gs)); err != nil {
				return err
			}
		}
		if err := s.SendMessage(ctx, room, c, false); err != nil {
			return err
		}
	}
	return nil
}

// pickResponders filters members by activity and probability, shuffles them
// and keeps at most MaxRespondingCharacters
func (s *ChatService) pickResponders(members []*models.Character, gs models.GroupSettings) []*models.Character {
	active := make([]*models.Character, 0, len(members))
	for _, c := range members {
		p := defaultResponseProbability
		if ps, ok := gs.ParticipantSettings[c.ID]; ok {
			if ps.IsActive != nil && !*ps.IsActive {
				continue
			}
			if ps.ResponseProbability != nil {
				p = *ps.ResponseProbability
			}
		}
		if s.random() < p {
			active = append(active, c)
		}
	}

	s.shuffle(len(active), func(i, j int) { active[i], active[j] = active[j], active[i] })

	limit := gs.MaxRespondingCharacters
	if limit <= 0 || limit > len(active) {
		limit = len(active)
	}
	return active[:limit]
}

func (s *ChatService) responseDelay(gs models.GroupSettings) time.Duration {
	jitter := (s.random()*2 - 1) * responseDelayJitterMs
	ms := float64(gs.ResponseDelay) + jitter
	if ms < 0 {
		ms = 0
	}
	return millis(ms)
}
