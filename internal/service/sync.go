package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pulseboard.app/signals/common/id"
	"pulseboard.app/signals/common/logger"
	"pulseboard.app/signals/core/config"
	"pulseboard.app/signals/internal/chat"
	"pulseboard.app/signals/internal/classify"
	"pulseboard.app/signals/internal/crypto"
	"pulseboard.app/signals/internal/model"
	"pulseboard.app/signals/internal/normalize"
	"pulseboard.app/signals/internal/store"
)

const (
	// defaultWindowHours gives callers that pass no window a month of
	// lookback, enough for a first sync to fill the board.
	defaultWindowHours = 24 * 30

	// maxFetchConversations bounds how many conversations one run reads.
	// The selector puts DMs first so the cap never drops them.
	maxFetchConversations = 20

	// maxSignalsPerSync caps how many chat signals one run persists,
	// most recent first.
	maxSignalsPerSync = 80

	// boardListLimit caps the board-eligible read-back after persisting.
	boardListLimit = 120

	minTitleLength = 10
	maxTitleLength = 100

	bodyTruncateLength = 500
)

// ChatAPI is the slice of the platform client the sync loop uses.
// *chat.Client satisfies it; tests substitute a scripted fake.
type ChatAPI interface {
	AuthTest(ctx context.Context) (chat.Identity, error)
	ListConversations(ctx context.Context) ([]chat.Conversation, error)
	History(ctx context.Context, conversationID string, oldest time.Time) ([]chat.Message, error)
	UserDisplayName(ctx context.Context, userID string) string
}

// ChatClientFactory builds a chat client for an opened access token.
type ChatClientFactory func(token string) ChatAPI

// SyncService ingests chat activity into the signal store. One call is
// one full replace-and-upsert cycle for the chat source inside a single
// transaction.
type SyncService struct {
	cfg         config.Config
	signals     store.SignalStore
	connections store.ConnectionStore
	txRunner    TxRunner
	normalizer  *normalize.Normalizer
	classifier  classify.Classifier
	newChat     ChatClientFactory
	logger      *slog.Logger
}

type SyncOption func(*SyncService)

// WithChatClientFactory overrides how chat clients are constructed.
// Used by tests to inject scripted clients.
func WithChatClientFactory(factory ChatClientFactory) SyncOption {
	return func(s *SyncService) {
		s.newChat = factory
	}
}

func WithLogger(l *slog.Logger) SyncOption {
	return func(s *SyncService) {
		s.logger = l
	}
}

func NewSyncService(
	cfg config.Config,
	signals store.SignalStore,
	connections store.ConnectionStore,
	txRunner TxRunner,
	normalizer *normalize.Normalizer,
	classifier classify.Classifier,
	opts ...SyncOption,
) *SyncService {
	s := &SyncService{
		cfg:         cfg,
		signals:     signals,
		connections: connections,
		txRunner:    txRunner,
		normalizer:  normalizer,
		classifier:  classifier,
		newChat: func(token string) ChatAPI {
			return chat.NewClient(token)
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncSignals refreshes the user's chat-derived signals for the given
// lookback window and returns the board-eligible set. Credential
// problems that the user cannot see (expired seal, demo token) resolve
// to an empty set with the connection marked disconnected; only
// problems the user must act on surface as errors.
func (s *SyncService) SyncSignals(ctx context.Context, user model.User, settings model.PrioritizationSettings, windowHours int) ([]model.ActivitySignal, error) {
	if s.cfg.EncryptionKey == "" {
		return nil, ErrMissingEncryptionKey
	}
	if windowHours <= 0 {
		windowHours = defaultWindowHours
	}

	now := time.Now().UTC()
	windowStart := now.Add(-time.Duration(windowHours) * time.Hour)
	runID := id.New()

	span := logger.StartSpan(ctx, "signals.sync",
		trace.WithAttributes(
			attribute.String("sync.user_id", user.ID),
			attribute.Int("sync.window_hours", windowHours),
		))
	defer span.End()

	ctx = logger.WithLogFields(span.Context(), logger.LogFields{
		UserID:    logger.Ptr(user.ID),
		Source:    logger.Ptr(string(model.SourceChat)),
		SyncRunID: logger.Ptr(runID),
		Component: "sync",
	})

	signals, usedFallback, err := s.collectChatSignals(ctx, user, settings, windowStart, now)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.persist(ctx, user.ID, windowStart, signals, usedFallback); err != nil {
		span.RecordError(err)
		return nil, err
	}

	board, err := s.signals.ListForBoard(ctx, user.ID, windowStart, boardListLimit)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "sync completed",
		"ingested", len(signals),
		"board_eligible", len(board),
		"fallback", usedFallback)
	return board, nil
}

// collectChatSignals runs the live fetch path. The bool result reports
// whether the synthetic fallback set was used instead of live data.
func (s *SyncService) collectChatSignals(ctx context.Context, user model.User, settings model.PrioritizationSettings, windowStart, now time.Time) ([]model.ActivitySignal, bool, error) {
	connection, err := s.connections.GetByUserAndProvider(ctx, user.ID, model.ProviderSlack)
	if err != nil {
		if err == store.ErrNotFound {
			s.logger.InfoContext(ctx, "no chat connection; skipping live fetch")
			return s.fallbackResult(ctx, user, windowStart, now)
		}
		return nil, false, fmt.Errorf("loading chat connection: %w", err)
	}

	if connection.Status != model.ConnectionConnected || connection.EncryptedAccessToken == nil {
		s.logger.InfoContext(ctx, "chat connection not usable", "status", connection.Status)
		return s.fallbackResult(ctx, user, windowStart, now)
	}

	token, err := crypto.Open(*connection.EncryptedAccessToken, s.cfg.EncryptionKey)
	if err != nil {
		s.logger.WarnContext(ctx, "stored chat token cannot be opened; disconnecting", "error", err)
		s.disconnect(ctx, connection.ID)
		return s.fallbackResult(ctx, user, windowStart, now)
	}

	if strings.HasPrefix(token, demoTokenPrefix) {
		s.logger.InfoContext(ctx, "demo token detected; disconnecting placeholder connection")
		s.disconnect(ctx, connection.ID)
		return s.fallbackResult(ctx, user, windowStart, now)
	}

	if chat.IsBotToken(token) {
		return nil, false, &CredentialError{
			Message: "chat connection uses a bot token which cannot read direct messages; reconnect the workspace with user scopes",
		}
	}

	client := s.newChat(token)
	target := s.resolveMentionTarget(ctx, client, connection, token)
	if target == "" {
		s.logger.WarnContext(ctx, "no mention target resolved; matching any explicit mention")
	}

	conversations, err := client.ListConversations(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("listing conversations: %w", err)
	}

	selected := SelectConversations(conversations, settings.KeyChannels)
	if len(selected) > maxFetchConversations {
		selected = selected[:maxFetchConversations]
	}
	s.logger.DebugContext(ctx, "conversations selected",
		"discovered", len(conversations),
		"selected", len(selected))

	results := s.fetchHistories(ctx, client, selected, windowStart)

	var (
		signals   []model.ActivitySignal
		fetchErrs []error
	)
	for _, result := range results {
		if result.err != nil {
			s.logger.WarnContext(ctx, "conversation history fetch failed",
				"conversation_id", result.conversation.ID,
				"category", chat.Categorize(result.err),
				"error", result.err)
			fetchErrs = append(fetchErrs, result.err)
			continue
		}
		for _, message := range result.messages {
			signal, ok := s.buildSignal(ctx, client, user, result.conversation, message, target)
			if !ok {
				continue
			}
			signals = append(signals, signal)
		}
	}

	if len(signals) == 0 && len(fetchErrs) > 0 {
		return nil, false, newFetchError(fetchErrs)
	}

	sort.Slice(signals, func(i, j int) bool {
		return signals[i].EventAt.After(signals[j].EventAt)
	})
	if len(signals) > maxSignalsPerSync {
		signals = signals[:maxSignalsPerSync]
	}

	if len(signals) == 0 {
		return s.fallbackResult(ctx, user, windowStart, now)
	}
	return signals, false, nil
}

// resolveMentionTarget picks the id strict mention filtering matches
// against, reaching for the auth probe only when configuration and the
// stored connection give nothing.
func (s *SyncService) resolveMentionTarget(ctx context.Context, client ChatAPI, connection *model.Connection, token string) string {
	input := chat.MentionTargetInput{
		Configured: s.cfg.Chat.TargetUserID,
		Token:      token,
	}
	if connection.AccountID != nil {
		input.AccountID = *connection.AccountID
	}
	if connection.AccountName != nil {
		input.AccountName = *connection.AccountName
	}

	if target := chat.ResolveMentionTarget(input); target != "" {
		return target
	}

	identity, err := client.AuthTest(ctx)
	if err != nil {
		s.logger.DebugContext(ctx, "auth probe failed while resolving mention target", "error", err)
		return ""
	}
	return chat.ResolveMentionTarget(chat.MentionTargetInput{
		AuthUserID: identity.UserID,
		Token:      token,
	})
}

type historyResult struct {
	conversation chat.Conversation
	messages     []chat.Message
	err          error
}

// fetchHistories reads each selected conversation's history. With
// Concurrency > 1 a bounded worker pool fans the reads out; results
// keep selection order either way so output is deterministic.
func (s *SyncService) fetchHistories(ctx context.Context, client ChatAPI, conversations []chat.Conversation, oldest time.Time) []historyResult {
	results := make([]historyResult, len(conversations))

	workers := s.cfg.Sync.Concurrency
	if workers <= 1 {
		for i, conversation := range conversations {
			messages, err := client.History(ctx, conversation.ID, oldest)
			results[i] = historyResult{conversation: conversation, messages: messages, err: err}
		}
		return results
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, conversation := range conversations {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, conversation chat.Conversation) {
			defer wg.Done()
			defer func() { <-sem }()
			messages, err := client.History(ctx, conversation.ID, oldest)
			results[i] = historyResult{conversation: conversation, messages: messages, err: err}
		}(i, conversation)
	}
	wg.Wait()

	return results
}

// buildSignal gates one raw message and, when it survives, produces the
// persisted signal. ok=false means skip without error.
func (s *SyncService) buildSignal(ctx context.Context, client ChatAPI, user model.User, conversation chat.Conversation, message chat.Message, target string) (model.ActivitySignal, bool) {
	eventAt, ok := message.EventTime()
	if !ok || strings.TrimSpace(message.Text) == "" {
		return model.ActivitySignal{}, false
	}
	if message.Subtype != "" && message.Subtype != "thread_broadcast" {
		return model.ActivitySignal{}, false
	}

	mentionIDs := chat.MentionedUserIDs(message.Text)

	matchMode := "any-mention"
	if target != "" {
		matchMode = "strict"
	}

	var isMention bool
	if conversation.IsDM {
		// A DM counts when it came from someone else. Without a resolved
		// id for "me" the sender check degrades to sender-exists.
		if message.User == "" || (target != "" && strings.EqualFold(message.User, target)) {
			return model.ActivitySignal{}, false
		}
	} else {
		if target != "" {
			isMention = containsFold(mentionIDs, target)
		} else {
			isMention = len(mentionIDs) > 0
		}
		if !isMention {
			return model.ActivitySignal{}, false
		}
	}

	decoded := normalize.Compact(normalize.DecodeMarkup(message.Text))
	normalized := s.normalizer.Normalize(ctx, message.Text)
	flagged := classify.IsUrgent(normalized)

	author := client.UserDisplayName(ctx, message.User)
	classification := s.classifier.Classify(ctx, normalized, classify.MessageContext{
		IsMention:       isMention,
		IsDirectMessage: conversation.IsDM,
		Sender:          author,
	})
	if !classification.IsTask && !flagged {
		return model.ActivitySignal{}, false
	}

	title := strings.TrimSpace(classification.TaskTitle)
	if utf8.RuneCountInString(title) < minTitleLength {
		title = classify.TitleFromText(normalized)
	}
	if runes := []rune(title); len(runes) > maxTitleLength {
		title = strings.TrimSpace(string(runes[:maxTitleLength-3])) + "..."
	}
	// The kept title must come out at minTitleLength runes or more.
	if utf8.RuneCountInString(title) < minTitleLength {
		return model.ActivitySignal{}, false
	}

	channelLabel := "DM"
	messageType := "dm"
	if !conversation.IsDM {
		channelLabel = "#" + conversation.Name
		messageType = "channel"
	}

	metadata := model.Metadata{
		"reason":          classification.Reason,
		"confidence":      classification.Confidence,
		"match_mode":      matchMode,
		"conversation_id": conversation.ID,
		"raw_ts":          message.TS,
		"type":            messageType,
	}
	if len(mentionIDs) > 0 {
		metadata["mentioned_user_ids"] = mentionIDs
	}
	if normalized != decoded {
		metadata["original_text"] = logger.Truncate(decoded, bodyTruncateLength)
	}

	permalink := fmt.Sprintf("https://slack.com/archives/%s/p%s",
		conversation.ID, strings.ReplaceAll(message.TS, ".", ""))

	return model.ActivitySignal{
		ID:              id.New(),
		UserID:          user.ID,
		Source:          model.SourceChat,
		SourceID:        fmt.Sprintf("chat-%s-%s", conversation.ID, message.TS),
		Title:           title,
		Body:            logger.Ptr(logger.Truncate(normalized, bodyTruncateLength)),
		URL:             logger.Ptr(permalink),
		Author:          logger.Ptr(author),
		Channel:         logger.Ptr(channelLabel),
		PriorityHint:    min(0.95, classification.Confidence*0.9),
		EventAt:         eventAt,
		Metadata:        metadata,
		IsUnread:        true,
		IsFlagged:       flagged,
		IsMention:       isMention,
		IsDirectMessage: conversation.IsDM,
	}, true
}

// persist applies the full replace-and-upsert cycle atomically. Legacy
// and placeholder rows are purged in the same transaction so a crash
// can never leave a mixed generation behind.
func (s *SyncService) persist(ctx context.Context, userID string, windowStart time.Time, signals []model.ActivitySignal, usedFallback bool) error {
	return s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		signalStore := stores.Signals()

		if err := signalStore.DeleteBySourceInWindow(ctx, userID, model.SourceChat, windowStart); err != nil {
			return err
		}
		if err := signalStore.DeleteByIDPrefixes(ctx, userID, legacySignalPrefixes); err != nil {
			return err
		}
		for i := range signals {
			if err := signalStore.Upsert(ctx, &signals[i]); err != nil {
				return err
			}
		}
		if !usedFallback {
			if err := signalStore.DeleteBySourceIDs(ctx, userID, model.SourceChat, demoChatPlaceholderIDs); err != nil {
				return err
			}
		}
		return signalStore.DeleteBySources(ctx, userID, retiredSources)
	})
}

// maybeFallback returns the synthetic demo set when fallback sources
// are enabled and the user has no real chat signals in the window.
// Persisted live rows in the window always win over demo data.
func (s *SyncService) maybeFallback(ctx context.Context, user model.User, windowStart, now time.Time) []model.ActivitySignal {
	if !s.cfg.Sync.FallbackSources {
		return nil
	}
	count, err := s.signals.CountReal(ctx, user.ID, model.SourceChat, windowStart, demoChatPlaceholderIDs, legacySignalPrefixes)
	if err != nil {
		s.logger.WarnContext(ctx, "counting recent signals for fallback gate failed", "error", err)
		return nil
	}
	if count > 0 {
		return nil
	}
	s.logger.InfoContext(ctx, "using fallback chat signals")
	return fallbackChatSignals(user.ID, now)
}

// fallbackResult adapts maybeFallback for the collect path: the bool
// reports whether demo data actually went in, which in turn decides
// whether the placeholder purge runs.
func (s *SyncService) fallbackResult(ctx context.Context, user model.User, windowStart, now time.Time) ([]model.ActivitySignal, bool, error) {
	fallback := s.maybeFallback(ctx, user, windowStart, now)
	return fallback, len(fallback) > 0, nil
}

func (s *SyncService) disconnect(ctx context.Context, connectionID int64) {
	if err := s.connections.MarkDisconnected(ctx, connectionID); err != nil {
		s.logger.WarnContext(ctx, "failed to mark connection disconnected",
			"connection_id", connectionID,
			"error", err)
	}
}

func containsFold(values []string, needle string) bool {
	for _, v := range values {
		if strings.EqualFold(v, needle) {
			return true
		}
	}
	return false
}
