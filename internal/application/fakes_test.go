package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sanosuguru/go-amenity-reservation/internal/domain/directory"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/space"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/timeslot"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/transaction"
)

// memStore はテスト用のインメモリ実装
// 施設ロックは施設ごとの sync.Mutex で表し、トランザクションの終了まで保持する
type memStore struct {
	mu            sync.Mutex
	spaces        map[string]*space.Space
	windows       map[string][]*space.Availability
	blocks        map[string][]*space.Block
	rules         map[string]space.Rules
	reservations  map[string]*reservation.Reservation
	published     []reservation.Event
	units         map[string]*directory.Unit
	residents     map[string]*directory.Resident
	accessBlocked map[string]bool
	spaceLocks    map[string]*sync.Mutex
	// countDelay は件数取得の遅延（DB の応答時間の代わり）
	countDelay time.Duration
}

func newMemStore() *memStore {
	return &memStore{
		spaces:        map[string]*space.Space{},
		windows:       map[string][]*space.Availability{},
		blocks:        map[string][]*space.Block{},
		rules:         map[string]space.Rules{},
		reservations:  map[string]*reservation.Reservation{},
		units:         map[string]*directory.Unit{},
		residents:     map[string]*directory.Resident{},
		accessBlocked: map[string]bool{},
		spaceLocks:    map[string]*sync.Mutex{},
	}
}

var (
	_ space.Repository             = (*memStore)(nil)
	_ reservation.Repository       = (*memReservations)(nil)
	_ directory.UnitDirectory      = (*memStore)(nil)
	_ directory.ResidentDirectory  = (*memStore)(nil)
	_ directory.AccessBlockChecker = (*memStore)(nil)
	_ EventPublisher               = (*memStore)(nil)
	_ transaction.Manager          = (*memStore)(nil)
)

// --- transaction ---

type memTx struct {
	store  *memStore
	held   []*sync.Mutex
	writes []func()
	events []reservation.Event
	done   bool
}

func (m *memStore) Begin(ctx context.Context) (transaction.Tx, error) {
	return &memTx{store: m}, nil
}

func (tx *memTx) Commit() error {
	if tx.done {
		return nil
	}
	tx.store.mu.Lock()
	for _, w := range tx.writes {
		w()
	}
	tx.store.published = append(tx.store.published, tx.events...)
	tx.store.mu.Unlock()
	tx.finish()
	return nil
}

func (tx *memTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.finish()
	return nil
}

func (tx *memTx) finish() {
	tx.done = true
	for i := len(tx.held) - 1; i >= 0; i-- {
		tx.held[i].Unlock()
	}
	tx.held = nil
}

// --- space.Repository ---

func (m *memStore) Create(ctx context.Context, sp *space.Space) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sp.ID == "" {
		sp.ID = uuid.NewString()
	}
	c := *sp
	m.spaces[sp.ID] = &c
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*space.Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sp, ok := m.spaces[id]
	if !ok {
		return nil, space.ErrSpaceNotFound
	}
	c := *sp
	return &c, nil
}

func (m *memStore) Update(ctx context.Context, sp *space.Space) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.spaces[sp.ID]; !ok {
		return space.ErrSpaceNotFound
	}
	c := *sp
	m.spaces[sp.ID] = &c
	return nil
}

func (m *memStore) ListAvailability(ctx context.Context, spaceID string) ([]*space.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*space.Availability(nil), m.windows[spaceID]...), nil
}

func (m *memStore) AddAvailability(ctx context.Context, a *space.Availability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.NewString()
	m.windows[a.SpaceID] = append(m.windows[a.SpaceID], a)
	return nil
}

func (m *memStore) DeleteAvailability(ctx context.Context, spaceID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.windows[spaceID]
	for i, a := range list {
		if a.ID == id {
			m.windows[spaceID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return space.ErrAvailabilityNotFound
}

func (m *memStore) ListBlocks(ctx context.Context, spaceID string, within timeslot.Interval) ([]*space.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*space.Block
	for _, b := range m.blocks[spaceID] {
		if b.Interval().Overlaps(within) {
			result = append(result, b)
		}
	}
	return result, nil
}

func (m *memStore) AddBlock(ctx context.Context, b *space.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = uuid.NewString()
	m.blocks[b.SpaceID] = append(m.blocks[b.SpaceID], b)
	return nil
}

func (m *memStore) DeleteBlock(ctx context.Context, spaceID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.blocks[spaceID]
	for i, b := range list {
		if b.ID == id {
			m.blocks[spaceID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return space.ErrBlockNotFound
}

func (m *memStore) ListRules(ctx context.Context, spaceID string) (space.Rules, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append(space.Rules(nil), m.rules[spaceID]...), nil
}

func (m *memStore) UpsertRule(ctx context.Context, r *space.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rules := m.rules[r.SpaceID]
	for i, existing := range rules {
		if existing.Key == r.Key {
			rules[i] = r
			return nil
		}
	}
	m.rules[r.SpaceID] = append(rules, r)
	return nil
}

// --- reservation.Repository ---
// memStore は space.Repository と同名のメソッドを持つため、予約側は memReservations で提供する

type memReservations struct{ *memStore }

func (m *memStore) reservationRepo() *memReservations { return &memReservations{m} }

func (r *memReservations) LockSpace(ctx context.Context, tx transaction.Tx, spaceID string) error {
	mt := tx.(*memTx)
	r.mu.Lock()
	l, ok := r.spaceLocks[spaceID]
	if !ok {
		l = &sync.Mutex{}
		r.spaceLocks[spaceID] = l
	}
	r.mu.Unlock()

	l.Lock()
	mt.held = append(mt.held, l)
	return nil
}

func (r *memReservations) FindOverlapping(ctx context.Context, tx transaction.Tx, spaceID string, within timeslot.Interval, excludeID string) ([]*reservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*reservation.Reservation
	for _, res := range r.reservations {
		if res.SpaceID != spaceID || res.ID == excludeID || !res.BlocksSlot() {
			continue
		}
		if res.Interval().Overlaps(within) {
			c := *res
			result = append(result, &c)
		}
	}
	return result, nil
}

func (r *memReservations) Create(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	c := *res
	c.PullEvents() // 保存するのは状態のみ
	tx.(*memTx).writes = append(tx.(*memTx).writes, func() { r.reservations[c.ID] = &c })
	return nil
}

func (r *memReservations) Update(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	c := *res
	c.PullEvents() // 保存するのは状態のみ
	tx.(*memTx).writes = append(tx.(*memTx).writes, func() { r.reservations[c.ID] = &c })
	return nil
}

func (r *memReservations) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok {
		return nil, reservation.ErrReservationNotFound
	}
	c := *res
	return &c, nil
}

func (r *memReservations) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*reservation.Reservation, error) {
	return r.GetByID(ctx, id)
}

func (r *memReservations) List(ctx context.Context, f reservation.ListFilter) ([]*reservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*reservation.Reservation
	for _, res := range r.reservations {
		if res.UnitID != f.UnitID {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, res.Status) {
			continue
		}
		if f.Within != nil && !res.Interval().Overlaps(*f.Within) {
			continue
		}
		c := *res
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartAt.Before(result[j].StartAt) })
	if f.Offset >= len(result) {
		return []*reservation.Reservation{}, nil
	}
	result = result[f.Offset:]
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

func (r *memReservations) CountByUnit(ctx context.Context, tx transaction.Tx, spaceID, unitID string, within timeslot.Interval, statuses []reservation.Status) (int, error) {
	if r.countDelay > 0 {
		time.Sleep(r.countDelay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, res := range r.reservations {
		if res.SpaceID != spaceID || res.UnitID != unitID || !containsStatus(statuses, res.Status) {
			continue
		}
		if !res.StartAt.Before(within.Start) && res.StartAt.Before(within.End) {
			n++
		}
	}
	return n, nil
}

func (r *memReservations) ListBlockingInRange(ctx context.Context, spaceID string, within timeslot.Interval) ([]*reservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*reservation.Reservation
	for _, res := range r.reservations {
		if res.SpaceID == spaceID && res.BlocksSlot() && res.Interval().Overlaps(within) {
			c := *res
			result = append(result, &c)
		}
	}
	return result, nil
}

func containsStatus(list []reservation.Status, s reservation.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// --- directory ---

func (m *memStore) FindUnit(ctx context.Context, id string) (*directory.Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[id]
	if !ok {
		return nil, directory.ErrUnitNotFound
	}
	return u, nil
}

func (m *memStore) FindResident(ctx context.Context, id string) (*directory.Resident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.residents[id]
	if !ok {
		return nil, directory.ErrResidentNotFound
	}
	return r, nil
}

func (m *memStore) HasActiveAccessBlock(ctx context.Context, unitID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessBlocked[unitID], nil
}

// --- EventPublisher ---

func (m *memStore) Publish(ctx context.Context, tx transaction.Tx, events []reservation.Event) error {
	mt := tx.(*memTx)
	mt.events = append(mt.events, events...)
	return nil
}

func (m *memStore) publishedOf(reservationID string, t reservation.EventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.published {
		if e.ReservationID == reservationID && e.Type == t {
			n++
		}
	}
	return n
}

func (m *memStore) ListByReservation(ctx context.Context, reservationID string) ([]reservation.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := make([]reservation.Event, 0)
	for _, e := range m.published {
		if e.ReservationID == reservationID {
			events = append(events, e)
		}
	}
	return events, nil
}

func (m *memStore) allReservations() []*reservation.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*reservation.Reservation, 0, len(m.reservations))
	for _, r := range m.reservations {
		c := *r
		result = append(result, &c)
	}
	return result
}

// --- fixture ---

// 2026-10-15 (木) 09:00 UTC を現在時刻とする。次の月曜は 2026-10-19
var (
	testNow    = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	nextMonday = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
)

func at(day time.Time, h, m int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }

type testEnv struct {
	store       *memStore
	validator   *BookingValidator
	service     *ReservationService
	slotService *SlotService
	spaceSvc    *SpaceService
	spaceID     string
}

// newTestEnv は「月曜 08:00-22:00、最大8時間、定員50、24時間前まで」の施設を用意する
func newTestEnv(requiresApproval bool) *testEnv {
	store := newMemStore()
	sp := space.NewSpace("パーティールーム", space.Policy{
		Capacity:                  50,
		RequiresApproval:          requiresApproval,
		MaxDurationHours:          intPtr(8),
		MaxAdvanceDays:            30,
		MinAdvanceHours:           24,
		CancellationDeadlineHours: 48,
	})
	_ = store.Create(context.Background(), sp)
	_ = store.AddAvailability(context.Background(),
		space.NewAvailability(sp.ID, time.Monday, timeslot.MustClockTime("08:00"), timeslot.MustClockTime("22:00")))

	store.units["unit-101"] = &directory.Unit{ID: "unit-101", Number: "101", Active: true}
	store.units["unit-102"] = &directory.Unit{ID: "unit-102", Number: "102", Active: true}
	store.residents["resident-1"] = &directory.Resident{ID: "resident-1", UnitID: "unit-101", Name: "田中", Active: true}
	store.residents["resident-2"] = &directory.Resident{ID: "resident-2", UnitID: "unit-102", Name: "佐藤", Active: true}

	settings := DefaultBookingSettings()
	repo := store.reservationRepo()
	validator := NewBookingValidator(store, repo, store, store, store, settings.Location)
	service := NewReservationService(store, validator, store, repo, store, nil, nil, settings).
		WithClock(ClockFunc(func() time.Time { return testNow }))

	return &testEnv{
		store:       store,
		validator:   validator,
		service:     service,
		slotService: NewSlotService(store, repo, nil, settings),
		spaceSvc:    NewSpaceService(store, nil),
		spaceID:     sp.ID,
	}
}

func (e *testEnv) request(start, end time.Time, guests int) CreateReservationInput {
	return CreateReservationInput{
		SpaceID:        e.spaceID,
		UnitID:         "unit-101",
		ResidentID:     "resident-1",
		Title:          "誕生日会",
		StartAt:        start,
		EndAt:          end,
		ExpectedGuests: guests,
	}
}
