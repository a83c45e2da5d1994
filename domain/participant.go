// Package domain contains core concepts of the chat system.
// This file defines users and the participant view used in live events.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

type User struct {
	ID          UserID
	DisplayName string
	Online      bool
	LastSeen    time.Time
}

// Name falls back to the identifier when no display name was set.
func (u User) Name() string {
	if u.DisplayName == "" {
		return string(u.ID)
	}
	return u.DisplayName
}

type Participant struct {
	ID          UserID
	DisplayName string
}
