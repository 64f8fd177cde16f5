// Package chatlist builds the per-user conversation overview.
package chatlist

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"rental-chat/internal/models"
	"rental-chat/internal/observability"
)

// Source yields the latest message and unread count per peer.
type Source interface {
	ConversationHeads(ctx context.Context, userID int) ([]models.ConversationHead, error)
}

// UserDirectory resolves user profiles in bulk.
type UserDirectory interface {
	UsersByIDs(ctx context.Context, ids []int) ([]models.User, error)
}

// Cache stores computed chat lists. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, userID int) ([]models.ChatSummary, bool, error)
	Set(ctx context.Context, userID int, list []models.ChatSummary) error
	Delete(ctx context.Context, userIDs ...int) error
}

// Aggregator computes chat lists, optionally through a cache.
type Aggregator struct {
	source Source
	users  UserDirectory
	cache  Cache
	log    *zap.Logger
	group  singleflight.Group

	// gens counts invalidations per user. A fill only reaches the cache
	// when no invalidation happened since its build started.
	genMu sync.Mutex
	gens  map[int]uint64
}

// NewAggregator constructs an Aggregator. cache may be nil.
func NewAggregator(source Source, users UserDirectory, cache Cache, log *zap.Logger) *Aggregator {
	return &Aggregator{source: source, users: users, cache: cache, log: log, gens: make(map[int]uint64)}
}

// ChatList returns one summary per peer of userID, most recent conversation first.
func (a *Aggregator) ChatList(ctx context.Context, userID int) ([]models.ChatSummary, error) {
	if a.cache == nil {
		return a.build(ctx, userID)
	}

	list, ok, err := a.cache.Get(ctx, userID)
	switch {
	case err != nil:
		observability.IncChatListCache("error")
		a.log.Warn("chat list cache get failed", zap.Int("user_id", userID), zap.Error(err))
	case ok:
		observability.IncChatListCache("hit")
		return list, nil
	default:
		observability.IncChatListCache("miss")
	}

	gen := a.generation(userID)
	key := strconv.Itoa(userID) + ":" + strconv.FormatUint(gen, 10)
	v, err, _ := a.group.Do(key, func() (interface{}, error) {
		// the result is shared by every waiter on key
		ctx := context.WithoutCancel(ctx)
		built, err := a.build(ctx, userID)
		if err != nil {
			return nil, err
		}
		a.fill(ctx, userID, gen, built)
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.ChatSummary), nil
}

// Invalidate drops cached lists after messages or read flags change.
func (a *Aggregator) Invalidate(ctx context.Context, userIDs ...int) {
	if a.cache == nil || len(userIDs) == 0 {
		return
	}
	a.genMu.Lock()
	for _, id := range userIDs {
		a.gens[id]++
	}
	a.genMu.Unlock()
	if err := a.cache.Delete(ctx, userIDs...); err != nil {
		a.log.Warn("chat list cache invalidation failed", zap.Ints("user_ids", userIDs), zap.Error(err))
	}
}

func (a *Aggregator) generation(userID int) uint64 {
	a.genMu.Lock()
	defer a.genMu.Unlock()
	return a.gens[userID]
}

// fill stores list unless userID was invalidated after gen was read. The
// compare and the write share genMu, so an Invalidate either sees the write
// and deletes it, or bumps gen first and the write is skipped.
func (a *Aggregator) fill(ctx context.Context, userID int, gen uint64, list []models.ChatSummary) {
	a.genMu.Lock()
	defer a.genMu.Unlock()
	if a.gens[userID] != gen {
		observability.IncChatListCache("stale")
		return
	}
	if err := a.cache.Set(ctx, userID, list); err != nil {
		a.log.Warn("chat list cache set failed", zap.Int("user_id", userID), zap.Error(err))
	}
}

func (a *Aggregator) build(ctx context.Context, userID int) ([]models.ChatSummary, error) {
	heads, err := a.source.ConversationHeads(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load conversation heads: %w", err)
	}
	if len(heads) == 0 {
		return []models.ChatSummary{}, nil
	}

	peerIDs := make([]int, 0, len(heads))
	for _, h := range heads {
		peerIDs = append(peerIDs, h.PeerID)
	}
	users, err := a.users.UsersByIDs(ctx, peerIDs)
	if err != nil {
		return nil, fmt.Errorf("load chat peers: %w", err)
	}
	byID := make(map[int]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	list := make([]models.ChatSummary, 0, len(heads))
	for _, h := range heads {
		peer, ok := byID[h.PeerID]
		if !ok {
			// peers without a profile are not listed
			continue
		}
		list = append(list, models.ChatSummary{
			PeerID:               h.PeerID,
			PeerUsername:         peer.Username,
			PeerImage:            peer.Image,
			LastMessageID:        h.ID,
			LastMessageContent:   h.Content,
			LastMessageCreatedAt: h.CreatedAt,
			LastMessageIsRead:    h.IsRead,
			UnreadCount:          h.UnreadCount,
		})
	}
	SortByRecency(list)
	return list, nil
}

// SortByRecency orders summaries newest first; equal timestamps fall back
// to the higher message id.
func SortByRecency(list []models.ChatSummary) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].LastMessageCreatedAt.Equal(list[j].LastMessageCreatedAt) {
			return list[i].LastMessageCreatedAt.After(list[j].LastMessageCreatedAt)
		}
		return list[i].LastMessageID > list[j].LastMessageID
	})
}
