package domain

import (
	"time"

	"studymate/domain/event"
	errs "studymate/errors"
)

type RoomID string

// Phase is the current segment of the Pomodoro cycle.
type Phase string

const (
	PhaseStudy Phase = "Study Time"
	PhaseBreak Phase = "Break Time"
)

const (
	DefaultStudyDuration = 25 * time.Minute
	DefaultBreakDuration = 5 * time.Minute
	DefaultTotalSessions = 4
)

// TimerState is owned exclusively by its Room and mutated only through
// admin operations or the scheduler tick.
type TimerState struct {
	TimeLeft time.Duration
	Running  bool
	Phase    Phase
}

// Settings are the per-room Pomodoro durations, injected by configuration.
type Settings struct {
	StudyDuration time.Duration
	BreakDuration time.Duration
	TotalSessions int
}

func DefaultSettings() Settings {
	return Settings{
		StudyDuration: DefaultStudyDuration,
		BreakDuration: DefaultBreakDuration,
		TotalSessions: DefaultTotalSessions,
	}
}

// Room is an isolated real-time session: ordered roster, single admin,
// timer and session counters. A Room is not safe for concurrent use; it is
// owned by a single room worker which serializes all operations.
//
// Admin identity is keyed by the stable user id, not the transient
// connection id, so a reconnecting admin keeps the role. The wire-facing
// admin id stays the admin's current connection id (see AdminConn).
type Room struct {
	id             RoomID
	settings       Settings
	participants   []Participant
	adminUserID    string
	timer          TimerState
	currentSession int
	outbox         []event.DomainEvent
}

func NewRoom(id RoomID, settings Settings) *Room {
	return &Room{
		id:       id,
		settings: settings,
		timer: TimerState{
			TimeLeft: settings.StudyDuration,
			Running:  false,
			Phase:    PhaseStudy,
		},
		currentSession: 1,
	}
}

func (r *Room) ID() RoomID        { return r.id }
func (r *Room) Timer() TimerState { return r.timer }
func (r *Room) Empty() bool       { return len(r.participants) == 0 }

func (r *Room) Session() (current, total int) {
	return r.currentSession, r.settings.TotalSessions
}

// Participants returns a copy of the roster in insertion order.
func (r *Room) Participants() []Participant {
	out := make([]Participant, len(r.participants))
	copy(out, r.participants)
	return out
}

// AdminConn resolves the admin's stable user id to their current
// connection id. Empty when the roster is empty.
func (r *Room) AdminConn() string {
	for _, p := range r.participants {
		if p.UserID == r.adminUserID {
			return p.ConnID
		}
	}
	return ""
}

// FlushEvents drains the outbox. The caller owns fan-out of the returned
// events; the order is the order in which mutations produced them.
func (r *Room) FlushEvents() []event.DomainEvent {
	out := r.outbox
	r.outbox = nil
	return out
}

// Join upserts a participant by user id. A rejoin updates the connection id
// and display name in place, preserving roster position. The first joiner
// of an empty roster becomes admin.
//
// Emits: roster update and join notice to the room, then timer and session
// snapshots to the joining connection only.
func (r *Room) Join(p Participant) {
	updated := false
	for i := range r.participants {
		if r.participants[i].UserID == p.UserID {
			r.participants[i].ConnID = p.ConnID
			r.participants[i].DisplayName = p.DisplayName
			updated = true
			break
		}
	}
	if !updated {
		r.participants = append(r.participants, p)
	}
	if r.adminUserID == "" {
		r.adminUserID = p.UserID
	}

	r.emitParticipants()
	r.emit(event.SystemNotice{Room: string(r.id), Text: p.DisplayName + " joined the room"})
	r.emitTimer(p.ConnID)
	r.emitSession(p.ConnID)
}

// Leave removes the participant bound to connID. When the admin leaves and
// the roster is not empty, the oldest remaining participant (insertion
// order) becomes admin. Returns false when connID is not in the roster.
func (r *Room) Leave(connID string) bool {
	idx := -1
	for i, p := range r.participants {
		if p.ConnID == connID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	leaving := r.participants[idx]
	r.participants = append(r.participants[:idx], r.participants[idx+1:]...)

	if len(r.participants) == 0 {
		r.adminUserID = ""
		return true
	}

	if leaving.UserID == r.adminUserID {
		successor := r.participants[0]
		r.adminUserID = successor.UserID
		r.emit(event.SystemNotice{Room: string(r.id), Text: successor.DisplayName + " is now the admin"})
	}

	r.emitParticipants()
	r.emit(event.SystemNotice{Room: string(r.id), Text: leaving.DisplayName + " left the room"})
	return true
}

// ToggleTimer starts or pauses the countdown. Admin only.
func (r *Room) ToggleTimer(connID string) error {
	if err := r.requireAdmin(connID); err != nil {
		return err
	}
	r.timer.Running = !r.timer.Running
	r.emitTimer("")
	return nil
}

// ResetTimer returns the room to a stopped study phase at full duration and
// session one. Admin only.
func (r *Room) ResetTimer(connID string) error {
	if err := r.requireAdmin(connID); err != nil {
		return err
	}
	r.timer = TimerState{TimeLeft: r.settings.StudyDuration, Running: false, Phase: PhaseStudy}
	r.currentSession = 1
	r.emitTimer("")
	r.emitSession("")
	return nil
}

// SkipPhase forces the phase transition immediately and stops the timer.
// Admin only.
func (r *Room) SkipPhase(connID string) error {
	if err := r.requireAdmin(connID); err != nil {
		return err
	}
	r.switchPhase()
	r.timer.Running = false
	r.emitTimer("")
	r.emitSession("")
	return nil
}

// Tick advances a running timer by one unit. At zero the timer stops and
// the phase flips with the same rule as SkipPhase. TimeLeft never goes
// negative: the flip resets it to the new phase's duration.
func (r *Room) Tick() {
	if !r.timer.Running {
		return
	}
	r.timer.TimeLeft -= time.Second

	if r.timer.TimeLeft <= 0 {
		r.timer.Running = false
		r.switchPhase()
		r.emitSession("")
	}
	r.emitTimer("")
}

// switchPhase applies the transition rule: Study->Break resets to the break
// duration; Break->Study resets to the study duration and increments the
// session counter while it is below the total. The counter never cycles
// past the final session outside an explicit reset.
func (r *Room) switchPhase() {
	if r.timer.Phase == PhaseStudy {
		r.timer.Phase = PhaseBreak
		r.timer.TimeLeft = r.settings.BreakDuration
		return
	}
	r.timer.Phase = PhaseStudy
	r.timer.TimeLeft = r.settings.StudyDuration
	if r.currentSession < r.settings.TotalSessions {
		r.currentSession++
	}
}

// requireAdmin is the explicit authorization check for timer operations:
// the requesting connection must belong to the admin user.
func (r *Room) requireAdmin(connID string) error {
	for _, p := range r.participants {
		if p.ConnID == connID {
			if p.UserID == r.adminUserID {
				return nil
			}
			return errs.ErrUnauthorized
		}
	}
	return errs.ErrUnauthorized
}

func (r *Room) emit(e event.DomainEvent) {
	r.outbox = append(r.outbox, e)
}

func (r *Room) emitParticipants() {
	members := make([]event.Member, len(r.participants))
	for i, p := range r.participants {
		members[i] = event.Member{ConnID: p.ConnID, UserID: p.UserID, DisplayName: p.DisplayName}
	}
	r.emit(event.ParticipantsUpdated{Room: string(r.id), Participants: members, AdminConn: r.AdminConn()})
}

func (r *Room) emitTimer(conn string) {
	r.emit(event.TimerUpdated{
		Room:     string(r.id),
		Conn:     conn,
		TimeLeft: r.timer.TimeLeft,
		Running:  r.timer.Running,
		Phase:    string(r.timer.Phase),
	})
}

func (r *Room) emitSession(conn string) {
	r.emit(event.SessionUpdated{
		Room:           string(r.id),
		Conn:           conn,
		CurrentSession: r.currentSession,
		TotalSessions:  r.settings.TotalSessions,
	})
}
