// Package directory lists WhatsApp groups and resolves their membership,
// retrying through an eventually consistent primary source and falling back
// to a secondary one.
package directory

import (
	"context"
	"errors"
)

// UnnamedGroup is used when a group carries no subject.
const UnnamedGroup = "Grupo sem nome"

// DefaultGroupName is the membership listing name when none is known.
const DefaultGroupName = "Grupo"

var (
	ErrNotConnected = errors.New("whatsapp session is not ready")
	ErrNotFound     = errors.New("group not found")
	ErrUpstream     = errors.New("group data unavailable from every source")
)

type GroupSummary struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ParticipantCount int    `json:"participantCount"`
}

type Member struct {
	Phone          string `json:"phone"`
	PhoneFormatted string `json:"phoneFormatted"`
	Name           string `json:"name"`
	IsAdmin        bool   `json:"isAdmin"`
	IsSuperAdmin   bool   `json:"isSuperAdmin"`
}

// GroupMembers is a resolved membership listing.
type GroupMembers struct {
	Name    string
	Members []Member
}

// Participant is a raw group member before its display name is resolved.
type Participant struct {
	ID           string
	Phone        string
	DisplayName  string
	IsAdmin      bool
	IsSuperAdmin bool
}

type RawGroup struct {
	Name         string
	Participants []Participant
}

// GroupSource enumerates the groups the session belongs to.
type GroupSource interface {
	EnumerateGroups(ctx context.Context) ([]GroupSummary, error)
}

// GroupResolver resolves a single group and the display names of its members.
// ResolveGroup must return ErrNotFound when the id is not a known group.
type GroupResolver interface {
	ResolveGroup(ctx context.Context, groupID string) (*RawGroup, error)
	LookupName(ctx context.Context, participantID string) (string, error)
}
