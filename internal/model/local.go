package model

import "time"

// PlayerStats holds a player's lifetime record on this device
type PlayerStats struct {
	Games int `json:"games"`
	Wins  int `json:"wins"`
}

// ResumePointer identifies the most recently active unfinished game
type ResumePointer struct {
	Key       string    `json:"key"`
	UpdatedAt time.Time `json:"updatedAt"`
}
