package ledgercore

import (
	"sort"
	"strconv"

	"github.com/samber/lo"

	"github.com/colinmarsh/ledgercore/date"
)

// ScheduleID identifies a Schedule in creation order.
type ScheduleID int64

// Schedule is a template transaction plus its recurrence and the bookkeeping
// of which occurrences have been entered or canceled.
type Schedule struct {
	ID                  ScheduleID
	Description         string
	Active              bool
	AutoEnter           bool
	RemindBefore        int
	Recurrence          Recurrence
	Template            *Transaction
	EnteredOccurrences  []date.Date // sorted
	CanceledOccurrences []date.Date // sorted
}

func containsDate(list []date.Date, d date.Date) bool {
	for _, c := range list {
		if c.Equal(d) {
			return true
		}
	}
	return false
}

func sortedInsert(list []date.Date, d date.Date) []date.Date {
	i := sort.Search(len(list), func(i int) bool { return !list[i].Before(d) })
	list = append(list, date.Date{})
	copy(list[i+1:], list[i:])
	list[i] = d
	return list
}

// skip returns the sorted union of entered and canceled occurrences.
func (s *Schedule) skip() []date.Date {
	merged := append(append([]date.Date{}, s.EnteredOccurrences...), s.CanceledOccurrences...)
	sort.Slice(merged, func(i, j int) bool { return merged[i].Before(merged[j]) })
	return lo.UniqBy(merged, func(d date.Date) string { return d.String() })
}

// NextOccurrencesDates delegates to the recurrence with this schedule's
// skip set.
func (s *Schedule) NextOccurrencesDates(n int) []date.Date {
	return s.Recurrence.NextOccurrencesDates(n, s.skip())
}

// ScheduleManager owns every Schedule and is the sole entry point for
// entering and canceling occurrences.
type ScheduleManager struct {
	engine     *Engine
	schedules  map[ScheduleID]*Schedule
	nextID     ScheduleID
}

func NewScheduleManager(engine *Engine) *ScheduleManager {
	return &ScheduleManager{engine: engine, schedules: make(map[ScheduleID]*Schedule)}
}

// Add registers a new schedule, assigning it an id.
func (m *ScheduleManager) Add(s *Schedule) ScheduleID {
	m.nextID++
	s.ID = m.nextID
	m.schedules[s.ID] = s
	return s.ID
}

func (m *ScheduleManager) Get(id ScheduleID) (*Schedule, bool) {
	s, ok := m.schedules[id]
	return s, ok
}

// EnterOccurrenceOf validates date is among the next MaxFuture occurrences,
// records it as entered, advances/deactivates the schedule, and inserts a
// dated copy of the template via Engine.AddTransaction.
func (m *ScheduleManager) EnterOccurrenceOf(id ScheduleID, d date.Date) (TransactionID, error) {
	s, ok := m.schedules[id]
	if !ok {
		return NoID, newLookupError("schedule", strconv.FormatInt(int64(id), 10))
	}
	upcoming := s.NextOccurrencesDates(MaxFuture)
	if !containsDate(upcoming, d) {
		return NoID, newValidationError("schedule", "date %s is not a pending occurrence of schedule %d", d, id)
	}

	tx := s.Template.Clone()
	tx.ID = NoID
	tx.Date = d
	id2, err := m.engine.AddTransaction(tx)
	if err != nil {
		return NoID, err
	}

	s.EnteredOccurrences = sortedInsert(s.EnteredOccurrences, d)
	if s.Recurrence.Stops && s.Recurrence.NumRemaining > 0 {
		s.Recurrence.NumRemaining--
	}
	remaining := s.NextOccurrencesDates(1)
	if len(remaining) == 0 {
		s.Active = false
	}
	return id2, nil
}

// CancelOccurrenceOf records date as canceled without producing a
// transaction.
func (m *ScheduleManager) CancelOccurrenceOf(id ScheduleID, d date.Date) error {
	s, ok := m.schedules[id]
	if !ok {
		return newLookupError("schedule", strconv.FormatInt(int64(id), 10))
	}
	upcoming := s.NextOccurrencesDates(MaxFuture)
	if !containsDate(upcoming, d) {
		return newValidationError("schedule", "date %s is not a pending occurrence of schedule %d", d, id)
	}
	s.CanceledOccurrences = sortedInsert(s.CanceledOccurrences, d)
	if s.Recurrence.Stops && s.Recurrence.NumRemaining > 0 {
		s.Recurrence.NumRemaining--
	}
	return nil
}

// DueSchedules returns every active schedule whose next occurrence is on or
// before today.
func (m *ScheduleManager) DueSchedules(today date.Date) []*Schedule {
	all := lo.Values(m.schedules)
	due := lo.Filter(all, func(s *Schedule, _ int) bool {
		if !s.Active {
			return false
		}
		next := s.NextOccurrencesDates(1)
		return len(next) > 0 && !next[0].After(today)
	})
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due
}
