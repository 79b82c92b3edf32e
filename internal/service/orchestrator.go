package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"loan-advisor/internal/logger"
	"loan-advisor/internal/model"
	"loan-advisor/internal/nlu"
	"loan-advisor/internal/normalize"
	"loan-advisor/internal/rules"
	"loan-advisor/internal/session"

	"github.com/google/uuid"
)

var (
	ErrEmptyMessage  = errors.New("message is empty")
	ErrNoSpeechInput = errors.New("speech input is not configured")
)

// AudioFallbackReply is returned when transcription fails: the turn is kept
// and the user is asked to type instead.
const AudioFallbackReply = "I couldn't make out the audio. Could you type your message instead?"

// ResponseGenerator turns structured pipeline results into conversational
// replies. Implementations must be safe for concurrent use.
type ResponseGenerator interface {
	ExplainEligibility(ctx context.Context, ec EligibilityContext, lang string) (string, error)
	AskClarification(ctx context.Context, field string, history []session.Message, lang string) (string, error)
}

// ChatInput is one user turn. Message takes precedence; Audio is transcribed
// only when Message is empty.
type ChatInput struct {
	SessionID string
	Message   string
	Audio     []byte
	Language  string
}

// ChatResult is the processed outcome of one turn.
type ChatResult struct {
	SessionID string
	Reply     string
	Intent    nlu.Intent
	State     session.State
	Extracted map[string]any
	Verdict   *rules.Verdict
	Missing   []string
	Stages    []session.StageResult
}

// Orchestrator runs the turn pipeline: transcribe, normalize, extract, merge,
// evaluate, respond. Turns for the same session are serialized; different
// sessions proceed concurrently. The generator, transcriber and audit sink
// are optional collaborators and their failures never lose the turn.
type Orchestrator struct {
	store  session.Store
	engine *rules.Engine
	gen    ResponseGenerator
	stt    Transcriber
	audit  *AuditRecorder

	locks sync.Map // session id -> *sync.Mutex
}

func NewOrchestrator(store session.Store, engine *rules.Engine, gen ResponseGenerator, stt Transcriber, audit *AuditRecorder) *Orchestrator {
	return &Orchestrator{store: store, engine: engine, gen: gen, stt: stt, audit: audit}
}

func (o *Orchestrator) lock(id string) *sync.Mutex {
	mu, _ := o.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// stageLog accumulates per-stage outcomes for a turn.
type stageLog struct {
	stages []session.StageResult
}

func (sl *stageLog) run(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	r := session.StageResult{Stage: name, Status: "ok", Millis: time.Since(start).Milliseconds()}
	if err != nil {
		r.Status = "failed"
		r.Error = err.Error()
	}
	sl.stages = append(sl.stages, r)
	return err
}

func (sl *stageLog) skip(name string) {
	sl.stages = append(sl.stages, session.StageResult{Stage: name, Status: "skipped"})
}

// Process runs one turn through the pipeline and persists the updated
// session. It returns an error only when no meaningful reply could be
// produced at all; collaborator failures degrade to fallback text instead.
func (o *Orchestrator) Process(ctx context.Context, in ChatInput) (*ChatResult, error) {
	if in.SessionID == "" {
		in.SessionID = uuid.NewString()
	}
	mu := o.lock(in.SessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := o.store.Get(ctx, in.SessionID)
	if errors.Is(err, session.ErrNotFound) {
		sess = session.New(in.SessionID)
	} else if err != nil {
		return nil, fmt.Errorf("load session %s: %w", in.SessionID, err)
	}

	sl := &stageLog{}

	text := in.Message
	if text == "" && len(in.Audio) > 0 {
		if o.stt == nil {
			return nil, ErrNoSpeechInput
		}
		err := sl.run("transcribe", func() error {
			var terr error
			text, terr = o.stt.Transcribe(ctx, in.Audio, in.Language)
			return terr
		})
		if err != nil {
			// No text available. The turn is still logged and the user is
			// asked to type, never shown the collaborator error.
			logger.Warn("transcribe.degraded", "session_id", sess.ID, "err", err)
			return o.finishTurn(ctx, sess, sl, session.Turn{}, rules.Outcome{}, AudioFallbackReply)
		}
	} else {
		sl.skip("transcribe")
	}
	if text == "" {
		return nil, ErrEmptyMessage
	}

	lang := in.Language
	if lang == "" {
		lang = DetectLanguage(text)
	}

	var cleaned string
	sl.run("normalize", func() error {
		var changes []string
		cleaned, changes = normalize.Normalize(text, lang)
		if len(changes) > 0 {
			logger.Debug("normalize.applied", "session_id", sess.ID, "changes", changes)
		}
		return nil
	})

	var intent nlu.Intent
	var deltas nlu.Deltas
	sl.run("extract", func() error {
		intent, deltas = nlu.Extract(cleaned)
		return nil
	})

	mergeDeltas(&sess.Profile, deltas)

	var outcome rules.Outcome
	sl.run("evaluate", func() error {
		outcome = o.engine.Evaluate(sess.Profile)
		return nil
	})

	sess.AddHistory("user", text)
	reply := o.respond(ctx, sl, sess, outcome, lang)
	sess.State = nextState(sess.Profile, outcome)

	return o.finishTurn(ctx, sess, sl, session.Turn{
		Input:     text,
		Intent:    string(intent),
		Extracted: deltas.Fields(),
		Verdict:   outcome.Verdict,
	}, outcome, reply)
}

// finishTurn records the reply against the session, persists it and shapes
// the result. Degraded exits reach it with an empty turn and outcome.
func (o *Orchestrator) finishTurn(ctx context.Context, sess *session.Session, sl *stageLog, turn session.Turn, outcome rules.Outcome, reply string) (*ChatResult, error) {
	sess.AddHistory("assistant", reply)
	sess.UpdatedAt = time.Now()

	turn.ID = uuid.NewString()
	turn.Response = reply
	turn.Stages = sl.stages
	turn.CreatedAt = time.Now()
	sess.Turns = append(sess.Turns, turn)

	if err := o.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	if o.audit != nil {
		go o.audit.Record(context.Background(), sess.ID, turn)
	}

	return &ChatResult{
		SessionID: sess.ID,
		Reply:     reply,
		Intent:    nlu.Intent(turn.Intent),
		State:     sess.State,
		Extracted: turn.Extracted,
		Verdict:   outcome.Verdict,
		Missing:   outcome.Missing,
		Stages:    sl.stages,
	}, nil
}

// respond produces the reply for the turn. Generator failures fall back to
// deterministic text so the structured verdict still reaches the user.
func (o *Orchestrator) respond(ctx context.Context, sl *stageLog, sess *session.Session, outcome rules.Outcome, lang string) string {
	var reply string
	err := sl.run("respond", func() error {
		if outcome.NeedsInfo() {
			field := askField(outcome.Missing)
			if o.gen == nil {
				reply = clarificationFallback(field)
				return nil
			}
			r, gerr := o.gen.AskClarification(ctx, field, sess.RecentHistory(10), lang)
			if gerr != nil {
				reply = clarificationFallback(field)
				return gerr
			}
			reply = r
			return nil
		}
		ec := EligibilityContext{
			Verdict:   outcome.Verdict,
			Profile:   sess.Profile,
			Requested: sess.Profile.LoanAmountRequested,
			LoanType:  sess.Profile.LoanType,
		}
		if o.gen == nil {
			reply = verdictFallback(outcome.Verdict)
			return nil
		}
		r, gerr := o.gen.ExplainEligibility(ctx, ec, lang)
		if gerr != nil {
			reply = verdictFallback(outcome.Verdict)
			return gerr
		}
		reply = r
		return nil
	})
	if err != nil {
		logger.Warn("respond.fallback", "session_id", sess.ID, "err", err)
	}
	return reply
}

// askOrder is the conversational order for clarification questions.
var askOrder = []string{"loan type", "monthly income", "age"}

func askField(missing []string) string {
	for _, f := range askOrder {
		for _, m := range missing {
			if m == f {
				return f
			}
		}
	}
	return missing[0]
}

func clarificationFallback(field string) string {
	return fmt.Sprintf("Could you share your %s so I can check your eligibility?", field)
}

func verdictFallback(v *rules.Verdict) string {
	if v == nil {
		return FallbackReply
	}
	if v.IsEligible {
		return v.ApprovalMessage
	}
	msg := "Unfortunately you are not eligible at the moment."
	for _, r := range v.RejectionReasons {
		msg += " " + r + "."
	}
	return msg
}

func nextState(p rules.Profile, outcome rules.Outcome) session.State {
	switch {
	case outcome.Verdict != nil:
		return session.StateVerdictReturned
	case !outcome.NeedsInfo():
		return session.StateReadyForVerdict
	case p != (rules.Profile{}):
		return session.StateHasPartialProfile
	default:
		return session.StateAwaitingInput
	}
}

// mergeDeltas folds one turn's extractions into the session profile. Later
// mentions overwrite earlier ones; absent slots leave the profile untouched.
func mergeDeltas(p *rules.Profile, d nlu.Deltas) {
	if d.LoanAmount != nil {
		p.LoanAmountRequested = *d.LoanAmount
	}
	if d.MonthlyIncome != nil {
		p.MonthlyIncome = *d.MonthlyIncome
	}
	if d.TenureMonths != nil {
		p.LoanTenureMonths = *d.TenureMonths
	}
	if d.Age != nil {
		p.Age = *d.Age
	}
	if d.LoanType != nil {
		p.LoanType = *d.LoanType
	}
	if d.EmploymentMonths != nil {
		p.EmploymentMonths = *d.EmploymentMonths
	}
	if d.ExistingEMI != nil {
		p.ExistingEMI = *d.ExistingEMI
	}
	if d.CardMinPayment != nil {
		p.ExistingCardMinPayment = *d.CardMinPayment
	}
}

// Evaluate runs a direct eligibility check without touching any session.
func (o *Orchestrator) Evaluate(p rules.Profile) rules.Outcome {
	return o.engine.Evaluate(p)
}

// Snapshot returns the merged view of a session for the read endpoints. The
// memory store hands out the live session, so reads take the same per-session
// lock as Process.
func (o *Orchestrator) Snapshot(ctx context.Context, id string) (*model.SessionSnapshot, error) {
	mu := o.lock(id)
	mu.Lock()
	defer mu.Unlock()

	sess, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.SessionSnapshot{
		SessionID: sess.ID,
		State:     string(sess.State),
		Profile:   profileFields(sess.Profile),
		TurnCount: len(sess.Turns),
		CreatedAt: sess.CreatedAt.Format(time.RFC3339),
		UpdatedAt: sess.UpdatedAt.Format(time.RFC3339),
	}, nil
}

// Turns returns a copy of the ordered turn log of a session.
func (o *Orchestrator) Turns(ctx context.Context, id string) ([]session.Turn, error) {
	mu := o.lock(id)
	mu.Lock()
	defer mu.Unlock()

	sess, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	turns := make([]session.Turn, len(sess.Turns))
	copy(turns, sess.Turns)
	return turns, nil
}

// Reset deletes a session. The mutex stays in the map: dropping it could let
// a turn racing the delete run against a recreated session unserialized.
func (o *Orchestrator) Reset(ctx context.Context, id string) error {
	mu := o.lock(id)
	mu.Lock()
	defer mu.Unlock()

	return o.store.Delete(ctx, id)
}

// profileFields flattens a profile for API payloads, currency in rupees and
// zero values omitted.
func profileFields(p rules.Profile) map[string]any {
	f := map[string]any{}
	if p.MonthlyIncome > 0 {
		f["monthly_income"] = p.MonthlyIncome.Rupees()
	}
	if p.Age > 0 {
		f["age"] = p.Age
	}
	if p.EmploymentMonths > 0 {
		f["employment_months"] = p.EmploymentMonths
	}
	if p.ExistingEMI > 0 {
		f["existing_loans_emi"] = p.ExistingEMI.Rupees()
	}
	if p.ExistingCardMinPayment > 0 {
		f["existing_credit_cards_min_payment"] = p.ExistingCardMinPayment.Rupees()
	}
	if p.LoanAmountRequested > 0 {
		f["loan_amount_requested"] = p.LoanAmountRequested.Rupees()
	}
	if p.LoanTenureMonths > 0 {
		f["loan_tenure_months"] = p.LoanTenureMonths
	}
	if p.LoanType != "" {
		f["loan_type"] = string(p.LoanType)
	}
	return f
}
