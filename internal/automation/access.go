package automation

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// DoorPosition is the two-state door.
type DoorPosition uint8

const (
	DoorLocked DoorPosition = iota
	DoorUnlocked
)

func (p DoorPosition) String() string {
	if p == DoorUnlocked {
		return "UNLOCKED"
	}
	return "LOCKED"
}

// MarshalText renders the position as LOCKED or UNLOCKED.
func (p DoorPosition) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// DoorState holds the door position and the credential entitled to re-lock it.
type DoorState struct {
	Position   DoorPosition
	LastHolder []byte // nil until the first unlock
	HolderName string
}

// Credential is an authorized card identifier with its owner's display name.
type Credential struct {
	UID  []byte
	Name string
}

// CredentialStore resolves a presented identifier to an authorized credential.
type CredentialStore interface {
	Lookup(uid []byte) (Credential, bool)
}

// StaticCredentials is an immutable in-memory credential set keyed by UID.
type StaticCredentials struct {
	byUID map[string]Credential
}

// NewStaticCredentials copies creds into a lookup table.
func NewStaticCredentials(creds []Credential) *StaticCredentials {
	m := make(map[string]Credential, len(creds))
	for _, c := range creds {
		uid := append([]byte(nil), c.UID...)
		m[string(uid)] = Credential{UID: uid, Name: c.Name}
	}
	return &StaticCredentials{byUID: m}
}

// Lookup matches the exact byte sequence.
func (s *StaticCredentials) Lookup(uid []byte) (Credential, bool) {
	c, ok := s.byUID[string(uid)]
	return c, ok
}

// Len returns the number of authorized credentials.
func (s *StaticCredentials) Len() int { return len(s.byUID) }

// ParseUID decodes a card identifier written as hex bytes, optionally
// separated by colons, dashes or spaces ("cf:db:c5:c4").
func ParseUID(s string) ([]byte, error) {
	clean := strings.NewReplacer(":", "", "-", "", " ", "").Replace(strings.TrimSpace(s))
	if clean == "" {
		return nil, fmt.Errorf("empty card uid")
	}
	uid, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("card uid %q: %w", s, err)
	}
	return uid, nil
}

// FormatUID renders a UID the way ParseUID reads it.
func FormatUID(uid []byte) string {
	parts := make([]string, len(uid))
	for i, b := range uid {
		parts[i] = hex.EncodeToString([]byte{b})
	}
	return strings.Join(parts, ":")
}

// AccessOutcome is the result of presenting a credential.
type AccessOutcome uint8

const (
	AccessDenied AccessOutcome = iota
	AccessOpened
	AccessClosed
	AccessHeldByOther
)

func (o AccessOutcome) String() string {
	switch o {
	case AccessOpened:
		return "opened"
	case AccessClosed:
		return "closed"
	case AccessHeldByOther:
		return "held_by_other"
	default:
		return "denied"
	}
}

// AccessResult carries the outcome, the matched credential and the notice.
type AccessResult struct {
	Outcome    AccessOutcome
	Credential Credential // zero when denied
	Notice     Notice
}

// AccessController drives the door from presented credentials.
type AccessController struct {
	store CredentialStore
}

// NewAccessController returns a controller validating against store.
func NewAccessController(store CredentialStore) AccessController {
	return AccessController{store: store}
}

// Present applies one credential presentation to door.
func (a AccessController) Present(door DoorState, uid []byte) (DoorState, AccessResult) {
	cred, ok := a.store.Lookup(uid)
	if !ok {
		return door, AccessResult{
			Outcome: AccessDenied,
			Notice:  notice(NoticeAccessDenied, "Access denied: card "+FormatUID(uid)+" is not authorized."),
		}
	}

	switch {
	case door.Position == DoorLocked:
		door.Position = DoorUnlocked
		door.LastHolder = append([]byte(nil), cred.UID...)
		door.HolderName = cred.Name
		return door, AccessResult{
			Outcome:    AccessOpened,
			Credential: cred,
			Notice:     notice(NoticeDoorOpened, "Door opened by "+cred.Name+"."),
		}
	case bytes.Equal(cred.UID, door.LastHolder):
		door.Position = DoorLocked
		return door, AccessResult{
			Outcome:    AccessClosed,
			Credential: cred,
			Notice:     notice(NoticeDoorClosed, "Door closed by "+cred.Name+"."),
		}
	default:
		return door, AccessResult{
			Outcome:    AccessHeldByOther,
			Credential: cred,
			Notice:     notice(NoticeHeldByOther, "Door already opened by another user."),
		}
	}
}
