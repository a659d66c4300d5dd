package types

import (
	"context"

	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/directory"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-group-exporter/pkg/whatsapp"
)

// SessionState exposes the read-only session snapshot.
type SessionState interface {
	Snapshot() pkgWhatsApp.Snapshot
}

type SessionControl interface {
	SessionState
	Logout(ctx context.Context) (bool, error)
	PairPhone(ctx context.Context, phone string) (string, error)
}

type GroupLister interface {
	ListGroups(ctx context.Context) []directory.GroupSummary
}

type MemberResolver interface {
	GetMembers(ctx context.Context, groupID string) (*directory.GroupMembers, error)
}

type VersionControl interface {
	Status() pkgWhatsApp.VersionStatus
	Refresh(ctx context.Context, force bool) (pkgWhatsApp.VersionStatus, bool, error)
}

// IndexStats reports the size of the locally observed group index.
type IndexStats interface {
	Len() int
}
