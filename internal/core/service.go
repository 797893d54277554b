package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/logging"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/principal"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/tabular"
)

// DefaultTimeout is the maximum duration of one import.
const DefaultTimeout = 2 * time.Minute

// DefaultMaxFileSize is the largest accepted upload.
const DefaultMaxFileSize = 32 << 20

// VoteWriter replaces the results of a vote.
type VoteWriter interface {
	ReplaceVoteResults(ctx context.Context, vote *models.Vote) error
}

// ElectionWriter replaces candidates, lists and results of an election.
type ElectionWriter interface {
	ReplaceElectionResults(ctx context.Context, election *models.Election) error
}

// PartyWriter replaces the party results of an election or compound.
type PartyWriter interface {
	ReplaceElectionParties(ctx context.Context, election *models.Election) error
	ReplaceCompoundParties(ctx context.Context, compound *models.ElectionCompound) error
}

// ResultWriter is implemented by the result stores.
type ResultWriter interface {
	VoteWriter
	ElectionWriter
	PartyWriter
}

// Outcome is the result of an import.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

// Recorder receives import metrics.
type Recorder interface {
	ObserveImport(format string, outcome Outcome, duration time.Duration)
	CountErrors(kind ErrorKind, n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveImport(string, Outcome, time.Duration) {}
func (nopRecorder) CountErrors(ErrorKind, int)                   {}

// Config holds the limits of the import service.
type Config struct {
	MaxFileSize   int64
	Timeout       time.Duration
	MaxConcurrent int
	MaxWait       time.Duration
	// Locale is used to render messages in log entries.
	Locale language.Tag
}

// Service runs imports. The transaction boundary belongs to the caller:
// the service writes through the given writer exactly once per successful
// import and never on failure.
type Service struct {
	cfg      Config
	limiter  *ImportLimiter
	recorder Recorder
	onPhase  PhaseCallback
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLimiter replaces the limiter built from the config.
func WithLimiter(l *ImportLimiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithPhaseCallback registers a callback for phase transitions.
func WithPhaseCallback(cb PhaseCallback) Option {
	return func(s *Service) { s.onPhase = cb }
}

// NewService creates a service. Zero config values use the defaults.
func NewService(cfg Config, opts ...Option) *Service {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Locale == language.Und {
		cfg.Locale = language.German
	}
	s := &Service{
		cfg:      cfg,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWait)
	}
	return s
}

// Limiter returns the limiter of the service.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// Formats returns the registered formats for target.
func (s *Service) Formats(target Target) []FormatInfo {
	defs := ByTarget(target)
	infos := make([]FormatInfo, len(defs))
	for i, def := range defs {
		infos[i] = def.Info
	}
	return infos
}

// VoteRequest is the input of ImportVote.
type VoteRequest struct {
	Vote      *models.Vote
	Principal *principal.Principal
	Format    string
	Uploads   []Upload
}

// ElectionRequest is the input of ImportElection. Number and District
// select the election within countrywide exports.
type ElectionRequest struct {
	Election  *models.Election
	Principal *principal.Principal
	Format    string
	Number    string
	District  string
	Uploads   []Upload
}

// PartiesRequest is the input of ImportElectionParties and
// ImportCompoundParties.
type PartiesRequest struct {
	Principal *principal.Principal
	Format    string
	Uploads   []Upload
}

// ImportVote replaces the results of req.Vote with the uploaded files.
// On success the vote is updated in place and nil is returned. On failure
// the vote and the store are left untouched.
func (s *Service) ImportVote(ctx context.Context, w VoteWriter, req VoteRequest) Errors {
	return s.run(ctx, req.Format, TargetVote, "vote:"+req.Vote.ID, req.Uploads, func(ctx context.Context, def FormatDefinition, in *Input, logger *slog.Logger) Errors {
		in.Principal = req.Principal
		in.Entities = principal.NewResolver(req.Principal, req.Vote.Date.Year())
		vin := &VoteInput{Input: *in, Vote: req.Vote}

		batch, errs := def.ParseVote(vin)
		if errs.Empty() {
			errs = FinishVote(vin, batch, in.primary(def))
		}
		if !errs.Empty() {
			return errs
		}

		vin.Enter(PhaseCommit)
		updated := applyVote(req.Vote, batch)
		if err := w.ReplaceVoteResults(ctx, updated); err != nil {
			errs.Storage(err)
			return errs
		}
		*req.Vote = *updated

		logger.Info("vote imported",
			"status", updated.Status,
			"ballots", len(updated.Ballots),
			"progress", updated.Progress(),
		)
		return nil
	})
}

// ImportElection replaces candidates, lists and results of req.Election.
func (s *Service) ImportElection(ctx context.Context, w ElectionWriter, req ElectionRequest) Errors {
	return s.run(ctx, req.Format, TargetElection, "election:"+req.Election.ID, req.Uploads, func(ctx context.Context, def FormatDefinition, in *Input, logger *slog.Logger) Errors {
		var errs Errors
		if def.Info.ElectionType != "" && def.Info.ElectionType != req.Election.Type {
			errs.File("", MsgNotApplicable.With("format", def.Info.Key))
			return errs
		}

		in.Principal = req.Principal
		in.Entities = principal.NewResolver(req.Principal, req.Election.Date.Year())
		in.Number = req.Number
		in.District = req.District
		ein := &ElectionInput{Input: *in, Election: req.Election}

		batch, errs := def.ParseElection(ein)
		if errs.Empty() {
			errs = FinishElection(ein, batch, in.primary(def))
		}
		if !errs.Empty() {
			return errs
		}

		ein.Enter(PhaseCommit)
		updated := applyElection(req.Election, batch)
		if err := w.ReplaceElectionResults(ctx, updated); err != nil {
			errs.Storage(err)
			return errs
		}
		*req.Election = *updated

		logger.Info("election imported",
			"status", updated.Status,
			"candidates", len(updated.Candidates),
			"results", len(updated.Results),
			"progress", updated.Progress(),
		)
		return nil
	})
}

// ImportElectionParties replaces the party results of a proporz election.
func (s *Service) ImportElectionParties(ctx context.Context, w PartyWriter, election *models.Election, req PartiesRequest) Errors {
	return s.run(ctx, req.Format, TargetParties, "election:"+election.ID, req.Uploads, func(ctx context.Context, def FormatDefinition, in *Input, logger *slog.Logger) Errors {
		var errs Errors
		if !election.IsProporz() {
			errs.File("", MsgNotApplicable.With("format", def.Info.Key))
			return errs
		}

		in.Principal = req.Principal
		in.Entities = principal.NewResolver(req.Principal, election.Date.Year())
		pin := &PartyInput{Input: *in, Year: election.Date.Year(), Election: election}

		batch, errs := def.ParseParties(pin)
		if !errs.Empty() {
			return errs
		}
		finishParties(batch)

		pin.Enter(PhaseCommit)
		updated := *election
		var proporz models.ProporzData
		if election.Proporz != nil {
			proporz = *election.Proporz
		}
		proporz.PartyResults = batch.Results
		proporz.PartyPanachage = batch.Panachage
		updated.Proporz = &proporz
		if err := w.ReplaceElectionParties(ctx, &updated); err != nil {
			errs.Storage(err)
			return errs
		}
		*election = updated

		logger.Info("party results imported", "parties", len(batch.Results))
		return nil
	})
}

// ImportCompoundParties replaces the party results of an election compound.
func (s *Service) ImportCompoundParties(ctx context.Context, w PartyWriter, compound *models.ElectionCompound, req PartiesRequest) Errors {
	return s.run(ctx, req.Format, TargetParties, "compound:"+compound.ID, req.Uploads, func(ctx context.Context, def FormatDefinition, in *Input, logger *slog.Logger) Errors {
		in.Principal = req.Principal
		in.Entities = principal.NewResolver(req.Principal, compound.Date.Year())
		pin := &PartyInput{Input: *in, Year: compound.Date.Year(), Compound: compound}

		batch, errs := def.ParseParties(pin)
		if !errs.Empty() {
			return errs
		}
		finishParties(batch)

		pin.Enter(PhaseCommit)
		updated := *compound
		updated.PartyResults = batch.Results
		updated.PartyPanachage = batch.Panachage
		if err := w.ReplaceCompoundParties(ctx, &updated); err != nil {
			errs.Storage(err)
			return errs
		}
		*compound = updated

		logger.Info("party results imported", "parties", len(batch.Results))
		return nil
	})
}

type importFunc func(ctx context.Context, def FormatDefinition, in *Input, logger *slog.Logger) Errors

// run performs the steps shared by all imports: slot acquisition, format
// lookup and file loading. Load failures are returned before anything is
// parsed.
func (s *Service) run(ctx context.Context, format string, target Target, container string, uploads []Upload, fn importFunc) (errs Errors) {
	start := time.Now()

	importID := ImportIDFromContext(ctx)
	if importID == "" {
		importID = uuid.NewString()
		ctx = ContextWithImportID(ctx, importID)
	}
	logger := logging.ForImport(ctx, importID, format, container)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	outcome := OutcomeRejected
	defer func() {
		if len(errs) == 0 {
			outcome = OutcomeCommitted
		}
		for kind, n := range errs.CountByKind() {
			s.recorder.CountErrors(kind, n)
		}
		s.recorder.ObserveImport(format, outcome, time.Since(start))
	}()

	release, err := s.limiter.Acquire(ctx, container)
	if err != nil {
		logger.Warn("import not started", "error", err)
		outcome = OutcomeFailed
		errs.File("", MapError(err).AsMessage())
		return errs
	}
	defer release()

	def, ok := Get(format)
	if !ok {
		errs.File("", MsgUnknownFormat.With("format", format))
		return errs
	}
	if def.Info.Target != target {
		errs.File("", MsgNotApplicable.With("format", format))
		return errs
	}

	in := &Input{
		Format:  format,
		ctx:     ctx,
		logger:  logger,
		onPhase: s.onPhase,
	}
	in.Enter(PhaseReadFiles)
	in.Files, errs = s.load(def, uploads)
	if errs.Empty() {
		errs = fn(ctx, def, in, logger)
	}

	if !errs.Empty() {
		if errs.CountByKind()[KindFile] > 0 && hasCause(errs) {
			outcome = OutcomeFailed
		}
		in.Enter(PhaseReject)
		s.logReject(ctx, logger, errs)
		return errs
	}

	logger.Debug("import finished", "duration", time.Since(start))
	return nil
}

// load reads every file of the format. All files are loaded so that every
// unusable file is reported at once.
func (s *Service) load(def FormatDefinition, uploads []Upload) (map[string]*tabular.File, Errors) {
	var errs Errors
	byRole := make(map[string]Upload, len(uploads))
	for _, u := range uploads {
		byRole[u.Role] = u
	}
	// Single file formats accept an upload without role.
	if len(def.Info.Files) == 1 && len(uploads) == 1 {
		byRole[def.Info.Files[0].Role] = uploads[0]
	}

	files := make(map[string]*tabular.File, len(def.Info.Files))
	for _, spec := range def.Info.Files {
		u, ok := byRole[spec.Role]
		if !ok {
			errs.File("", MsgMissingFile.With("role", spec.Role))
			continue
		}
		filename := u.Filename
		if filename == "" {
			filename = spec.Role
		}
		if int64(len(u.Data)) > s.cfg.MaxFileSize {
			errs.File(filename, MsgFileTooLarge.With("limit", itoa(int(s.cfg.MaxFileSize))))
			continue
		}
		f, err := tabular.Load(u.Data, u.Mimetype, spec.Headers, filename)
		if err != nil {
			errs.Load(filename, err)
			continue
		}
		files[spec.Role] = f
	}
	return files, errs
}

func (s *Service) logReject(ctx context.Context, logger *slog.Logger, errs Errors) {
	tag := LocaleFromContext(ctx, s.cfg.Locale)
	first := errs[0]
	logger.Warn("import rejected",
		"errors", len(errs),
		"first_file", first.Filename,
		"first_line", first.Line,
		"first_message", first.Message.Localize(tag),
	)
	for _, e := range errs {
		if e.Cause != nil {
			logger.Error("import commit failed", "error", e.Cause, "code", e.Message.Code)
		}
	}
}

func hasCause(errs Errors) bool {
	for _, e := range errs {
		if e.Cause != nil {
			return true
		}
	}
	return false
}

// primary returns the filename of the first file of the format, which
// cross-file errors are reported against.
func (in *Input) primary(def FormatDefinition) string {
	if len(def.Info.Files) == 0 {
		return ""
	}
	if f := in.Files[def.Info.Files[0].Role]; f != nil {
		return f.Filename
	}
	return ""
}

// applyVote returns a copy of vote carrying the results of batch.
func applyVote(vote *models.Vote, batch *VoteBatch) *models.Vote {
	updated := *vote
	updated.Status = batch.Status
	updated.Ballots = make([]*models.Ballot, len(vote.Ballots))
	for i, b := range vote.Ballots {
		nb := *b
		nb.Results = batch.Results[b.Type]
		updated.Ballots[i] = &nb
	}
	return &updated
}

// applyElection returns a copy of election carrying the results of batch.
func applyElection(election *models.Election, batch *ElectionBatch) *models.Election {
	updated := *election
	updated.Status = batch.Status
	if batch.SetAbsoluteMajority {
		updated.AbsoluteMajority = batch.AbsoluteMajority
	}
	updated.Candidates = batch.Candidates
	updated.Results = batch.Results
	if election.Proporz != nil {
		proporz := *election.Proporz
		proporz.Lists = batch.Lists
		proporz.ListConnections = batch.Connections
		proporz.Panachage = batch.Panachage
		updated.Proporz = &proporz
	}
	return &updated
}
