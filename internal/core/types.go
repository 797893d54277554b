package core

import (
	"context"
	"log/slog"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/principal"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/tabular"
)

// Upload is one file handed to an import.
type Upload struct {
	Role     string // File role of the format, e.g. "wm_gemeinden"
	Filename string
	Mimetype string
	Data     []byte
}

// Target is the kind of container a format imports into.
type Target string

const (
	TargetVote     Target = "vote"
	TargetElection Target = "election"
	TargetParties  Target = "parties"
)

// FileSpec describes one file of a format.
type FileSpec struct {
	Role    string   // Unique role within the format
	Headers []string // Required column headers
}

// FormatInfo contains descriptive information about a format.
type FormatInfo struct {
	Key    string // Unique identifier: "wabstic_majorz"
	Label  string // Display name: "WabstiC Majorz"
	Target Target
	// ElectionType restricts election formats to one variant. Empty means
	// both variants are accepted.
	ElectionType models.ElectionType
	Files        []FileSpec
}

// VoteParser parses the files of a vote import.
type VoteParser func(in *VoteInput) (*VoteBatch, Errors)

// ElectionParser parses the files of an election import.
type ElectionParser func(in *ElectionInput) (*ElectionBatch, Errors)

// PartyParser parses the files of a party results import.
type PartyParser func(in *PartyInput) (*PartyBatch, Errors)

// FormatDefinition contains everything needed to import one format.
// Exactly one parser matching Info.Target is set.
type FormatDefinition struct {
	Info          FormatInfo
	ParseVote     VoteParser
	ParseElection ElectionParser
	ParseParties  PartyParser
}

// Phase is the current stage of an import.
type Phase string

const (
	PhaseReadFiles      Phase = "read_files"
	PhaseHeaderMetadata Phase = "parse_header_metadata"
	PhaseEntities       Phase = "parse_entities"
	PhaseCandidates     Phase = "parse_candidates"
	PhaseResults        Phase = "parse_results"
	PhaseCrossValidate  Phase = "cross_validate"
	PhaseCommit         Phase = "commit"
	PhaseReject         Phase = "reject"
)

// PhaseCallback is called whenever an import enters a new phase.
type PhaseCallback func(ctx context.Context, format string, phase Phase)

// Input is shared by all parser inputs.
type Input struct {
	Format    string
	Principal *principal.Principal
	Entities  principal.Resolver
	// Number and District select the rows of countrywide exports.
	Number   string
	District string
	Files    map[string]*tabular.File

	ctx     context.Context
	logger  *slog.Logger
	onPhase PhaseCallback
	phase   Phase
}

// File returns the loaded file for role.
func (in *Input) File(role string) *tabular.File {
	return in.Files[role]
}

// Enter marks the start of a parse phase.
func (in *Input) Enter(p Phase) {
	if in.phase == p {
		return
	}
	in.phase = p
	if in.logger != nil {
		in.logger.Debug("import phase", "phase", p)
	}
	if in.onPhase != nil {
		in.onPhase(in.ctx, in.Format, p)
	}
}

// VoteInput is passed to vote parsers.
type VoteInput struct {
	Input
	Vote *models.Vote
}

// ElectionInput is passed to election parsers.
type ElectionInput struct {
	Input
	Election *models.Election
}

// PartyInput is passed to party result parsers. Election is set when the
// parties belong to a single proporz election, Compound otherwise.
type PartyInput struct {
	Input
	Year     int
	Election *models.Election
	Compound *models.ElectionCompound
}

// VoteBatch is the normalized result of a vote import.
type VoteBatch struct {
	Status  models.Status
	Results map[models.BallotType][]models.BallotResult
}

// ElectionBatch is the normalized result of an election import.
type ElectionBatch struct {
	Status models.Status
	// AbsoluteMajority is applied only if SetAbsoluteMajority is set.
	AbsoluteMajority    *int
	SetAbsoluteMajority bool

	Candidates  []models.Candidate
	Results     []models.ElectionResult
	Lists       []models.List
	Connections []models.ListConnection
	Panachage   []models.PanachageResult
}

// PartyBatch is the normalized result of a party results import.
type PartyBatch struct {
	Results   []models.PartyResult
	Panachage []models.PanachageResult
}
