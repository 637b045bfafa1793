package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	EventGameCreated       EventType = "game_created"
	EventRoundSaved        EventType = "round_saved"
	EventRoundEdited       EventType = "round_edited"
	EventPlayersEliminated EventType = "players_eliminated"
	EventGameEnded         EventType = "game_ended"
	EventGameReset         EventType = "game_reset"
	EventRemoteRefresh     EventType = "remote_refresh"
)

// Event is emitted to session subscribers after every state change
type Event struct {
	Type      EventType
	Timestamp time.Time
	GameName  string
	State     *Game // Snapshot after the change
	Payload   any   // Type-specific data
}

// RoundSavedPayload contains data for round saved and round edited events
type RoundSavedPayload struct {
	RoundNumber         int
	Totals              map[string]int
	PendingEliminations []string
}

// PlayersEliminatedPayload contains data for players eliminated events
type PlayersEliminatedPayload struct {
	Players []string
}

// GameEndedPayload contains data for game ended events
type GameEndedPayload struct {
	Winner string // Empty if every player was eliminated
}
