package escrow

// Revision is the versioned behavior strategy behind the engine's stable
// identity. Persisted state outlives revision swaps: the storage schema is
// additive-only, so upgrading never invalidates existing records.
type Revision interface {
	// Name is the revision's reported version tag.
	Name() string

	// DepositsEnabled reports whether the top-up operation is active.
	// Deposits stay on the surface in every revision; V1 keeps the entry
	// point inert per deployment policy.
	DepositsEnabled() bool
}

type revisionV1 struct{}

func (revisionV1) Name() string          { return "V1" }
func (revisionV1) DepositsEnabled() bool { return false }

type revisionV2 struct{}

func (revisionV2) Name() string          { return "V2" }
func (revisionV2) DepositsEnabled() bool { return true }

// RevisionV1 is the initial revision: deposits are administratively
// disabled.
var RevisionV1 Revision = revisionV1{}

// RevisionV2 enables the deposit top-up operation.
var RevisionV2 Revision = revisionV2{}

var revisions = map[string]Revision{
	RevisionV1.Name(): RevisionV1,
	RevisionV2.Name(): RevisionV2,
}

// RevisionByName looks up a registered revision by its version tag.
func RevisionByName(name string) (Revision, bool) {
	r, ok := revisions[name]
	return r, ok
}
