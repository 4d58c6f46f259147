//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-support-bot/internal/domain"
	"telegram-support-bot/internal/domain/model"
	"telegram-support-bot/internal/domain/ports/adapter"
)

// =============================
// Adapters
// =============================

// ---- Mock MessagingGateway ----

// sentMessage captures one SendMessage call.
type sentMessage struct {
	ChatID   int64
	ThreadID int
	Text     string
}

// sentAlbum captures one SendAlbum call.
type sentAlbum struct {
	ChatID   int64
	ThreadID int
	Batch    model.Batch
	Caption  string
}

// copiedMessage captures one Copy call.
type copiedMessage struct {
	Msg      model.Message
	DestChat int64
	ThreadID int
	Caption  string
}

type MockGateway struct {
	mu      sync.Mutex
	Sent    []sentMessage
	Albums  []sentAlbum
	Copied  []copiedMessage
	Topics  map[int64][]string // staff chat -> created topic titles
	nextTID int

	SendMessageFunc func(ctx context.Context, chatID int64, threadID int, text string) error
	SendAlbumFunc   func(ctx context.Context, chatID int64, threadID int, batch model.Batch, caption string) error
	CopyFunc        func(ctx context.Context, msg model.Message, destChat int64, threadID int, caption string) error
	CreateTopicFunc func(ctx context.Context, chatID int64, title string) (int, error)
	IsMemberFunc    func(ctx context.Context, chatID, userID int64) (bool, error)
}

var _ adapter.MessagingGateway = (*MockGateway)(nil)

func NewMockGateway() *MockGateway {
	return &MockGateway{Topics: make(map[int64][]string), nextTID: 100}
}

func (m *MockGateway) SendMessage(ctx context.Context, chatID int64, threadID int, text string) error {
	if m.SendMessageFunc != nil {
		if err := m.SendMessageFunc(ctx, chatID, threadID, text); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, sentMessage{ChatID: chatID, ThreadID: threadID, Text: text})
	return nil
}

func (m *MockGateway) SendAlbum(ctx context.Context, chatID int64, threadID int, batch model.Batch, caption string) error {
	if m.SendAlbumFunc != nil {
		if err := m.SendAlbumFunc(ctx, chatID, threadID, batch, caption); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Albums = append(m.Albums, sentAlbum{ChatID: chatID, ThreadID: threadID, Batch: batch, Caption: caption})
	return nil
}

func (m *MockGateway) Copy(ctx context.Context, msg model.Message, destChat int64, threadID int, caption string) error {
	if m.CopyFunc != nil {
		if err := m.CopyFunc(ctx, msg, destChat, threadID, caption); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Copied = append(m.Copied, copiedMessage{Msg: msg, DestChat: destChat, ThreadID: threadID, Caption: caption})
	return nil
}

func (m *MockGateway) CreateTopic(ctx context.Context, chatID int64, title string) (int, error) {
	if m.CreateTopicFunc != nil {
		return m.CreateTopicFunc(ctx, chatID, title)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Topics[chatID] = append(m.Topics[chatID], title)
	m.nextTID++
	return m.nextTID, nil
}

func (m *MockGateway) IsChatMember(ctx context.Context, chatID, userID int64) (bool, error) {
	if m.IsMemberFunc != nil {
		return m.IsMemberFunc(ctx, chatID, userID)
	}
	return false, nil
}

func (m *MockGateway) SentTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Sent))
	for i, s := range m.Sent {
		out[i] = s.Text
	}
	return out
}

func (m *MockGateway) SentTo(chatID int64) []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMessage
	for _, s := range m.Sent {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

// =============================
// Repositories
// =============================

// ---- In-memory UserRepository ----

type memUserRepo struct {
	mu    sync.RWMutex
	store map[int64]*model.User

	findErr        error // simulate lookup failures
	bindErr        error // simulate binding failures
	findByTopicErr error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{store: make(map[int64]*model.User)}
}

func (m *memUserRepo) seed(u *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[u.ID] = cloneUser(u)
}

func cloneUser(u *model.User) *model.User {
	cp := *u
	cp.Subscribed = make(map[model.Category]bool, len(u.Subscribed))
	for k, v := range u.Subscribed {
		cp.Subscribed[k] = v
	}
	cp.Topics = make(map[model.Category]int, len(u.Topics))
	for k, v := range u.Topics {
		cp.Topics[k] = v
	}
	return &cp
}

func (m *memUserRepo) Create(ctx context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[u.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.store[u.ID] = cloneUser(u)
	return nil
}

func (m *memUserRepo) Find(ctx context.Context, id int64) (*model.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneUser(u), nil
}

func (m *memUserRepo) SetActiveCategory(ctx context.Context, id int64, c model.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Active = c
	return nil
}

func (m *memUserRepo) SetFlag(ctx context.Context, id int64, c model.Category, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Subscribed[c] = on
	return nil
}

func (m *memUserRepo) SetBanned(ctx context.Context, id int64, banned bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Banned = banned
	return nil
}

func (m *memUserRepo) BindTopic(ctx context.Context, id int64, c model.Category, threadID int) error {
	if m.bindErr != nil {
		return m.bindErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if _, bound := u.Topics[c]; bound {
		return domain.ErrDuplicateBinding
	}
	u.Topics[c] = threadID
	return nil
}

func (m *memUserRepo) FindByTopic(ctx context.Context, c model.Category, threadID int) (int64, error) {
	if m.findByTopicErr != nil {
		return 0, m.findByTopicErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.store {
		if tid, ok := u.Topics[c]; ok && tid == threadID {
			return u.ID, nil
		}
	}
	return 0, domain.ErrNotFound
}

func (m *memUserRepo) ListSubscribers(ctx context.Context, c model.Category) ([]*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.User
	for _, u := range m.store {
		if u.Subscribed[c] {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- In-memory BroadcastRepository ----

type memBroadcastRepo struct {
	mu    sync.Mutex
	store map[string]*model.PendingBroadcast
	order []string
}

func newMemBroadcastRepo() *memBroadcastRepo {
	return &memBroadcastRepo{store: make(map[string]*model.PendingBroadcast)}
}

func (m *memBroadcastRepo) CreatePending(ctx context.Context, p *model.PendingBroadcast) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[p.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *p
	m.store[p.ID] = &cp
	m.order = append(m.order, p.ID)
	return nil
}

func (m *memBroadcastRepo) GetPending(ctx context.Context, id string) (*model.PendingBroadcast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memBroadcastRepo) ListPending(ctx context.Context) ([]*model.PendingBroadcast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PendingBroadcast
	for _, id := range m.order {
		if p := m.store[id]; p.CompletedAt == nil {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memBroadcastRepo) MarkComplete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	p.CompletedAt = &now
	return nil
}

// ---- In-memory DeliveryLogRepository ----

type memDeliveryLog struct {
	mu        sync.Mutex
	records   map[string]bool // "userID:postID"
	recordErr error
}

func newMemDeliveryLog() *memDeliveryLog {
	return &memDeliveryLog{records: make(map[string]bool)}
}

func deliveryKey(userID int64, postID string) string {
	return fmt.Sprintf("%d:%s", userID, postID)
}

func (m *memDeliveryLog) Exists(ctx context.Context, userID int64, postID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[deliveryKey(userID, postID)], nil
}

func (m *memDeliveryLog) Record(ctx context.Context, userID int64, postID string) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := deliveryKey(userID, postID)
	if m.records[key] {
		return domain.ErrAlreadyExists
	}
	m.records[key] = true
	return nil
}

// ---- In-memory NoticeLedger ----

type memNoticeLedger struct {
	mu        sync.Mutex
	notices   map[string]*model.Notice
	delivered map[string]map[int64]bool
}

func newMemNoticeLedger() *memNoticeLedger {
	return &memNoticeLedger{
		notices:   make(map[string]*model.Notice),
		delivered: make(map[string]map[int64]bool),
	}
}

func (m *memNoticeLedger) Put(ctx context.Context, n *model.Notice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.notices[n.Token] = &cp
	if m.delivered[n.Token] == nil {
		m.delivered[n.Token] = make(map[int64]bool)
	}
	return nil
}

func (m *memNoticeLedger) Get(ctx context.Context, token string) (*model.Notice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notices[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *memNoticeLedger) Tokens(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.notices))
	for t := range m.notices {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memNoticeLedger) DeliveredTo(ctx context.Context, token string, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.delivered[token][userID], nil
}

func (m *memNoticeLedger) MarkDelivered(ctx context.Context, token string, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delivered[token] == nil {
		m.delivered[token] = make(map[int64]bool)
	}
	m.delivered[token][userID] = true
	return nil
}

func (m *memNoticeLedger) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.notices, token)
	delete(m.delivered, token)
	return nil
}

// =============================
// Usecase-side collaborators
// =============================

// ---- In-memory Locker ----

type memLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]string)}
}

func (l *memLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[key]; taken {
		return "", domain.ErrAlreadyExists
	}
	token := fmt.Sprintf("tok-%d", len(l.held)+1)
	l.held[key] = token
	return token, nil
}

func (l *memLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

// ---- In-memory BindingCache ----

type memBindingCache struct {
	mu      sync.Mutex
	threads map[string]int
	owners  map[string]int64
}

func newMemBindingCache() *memBindingCache {
	return &memBindingCache{threads: make(map[string]int), owners: make(map[string]int64)}
}

func (c *memBindingCache) GetThread(ctx context.Context, userID int64, cat model.Category) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.threads[fmt.Sprintf("%d:%s", userID, cat)]
	return t, ok
}

func (c *memBindingCache) PutThread(ctx context.Context, userID int64, cat model.Category, threadID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threads[fmt.Sprintf("%d:%s", userID, cat)] = threadID
}

func (c *memBindingCache) GetOwner(ctx context.Context, cat model.Category, threadID int) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.owners[fmt.Sprintf("%s:%d", cat, threadID)]
	return u, ok
}

func (c *memBindingCache) PutOwner(ctx context.Context, cat model.Category, threadID int, userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owners[fmt.Sprintf("%s:%d", cat, threadID)] = userID
}

// ---- Static staff chat mapping ----

type staticChats map[model.Category]int64

func (s staticChats) StaffChat(c model.Category) (int64, bool) {
	id, ok := s[c]
	return id, ok
}

func (s staticChats) CategoryOf(chatID int64) (model.Category, bool) {
	for c, id := range s {
		if id == chatID {
			return c, true
		}
	}
	return "", false
}

// ---- Stub Translator ----

// stubTranslator renders "<key>" or "<key>|arg1|arg2" so assertions can match
// on keys without real locale files.
type stubTranslator struct{}

func (stubTranslator) T(key string, args ...interface{}) string {
	out := key
	for _, a := range args {
		out += fmt.Sprintf("|%v", a)
	}
	return out
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
// It writes to io.Discard to prevent logs from cluttering test output.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
