package benchmark

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/brunobiangulo/modelarena/dataset"
	"github.com/brunobiangulo/modelarena/llm"
)

var (
	// ErrPromptNotFound is returned when a vote names an unknown prompt.
	ErrPromptNotFound = errors.New("benchmark: prompt not found in blind test")
	// ErrAlreadyVoted is returned for a second vote on the same pair.
	ErrAlreadyVoted = errors.New("benchmark: pair already voted")
	// ErrInvalidPosition is returned for a position other than A or B.
	ErrInvalidPosition = errors.New("benchmark: position must be A or B")
)

// BlindTestResult holds the un-scored answers of two models, shown in shuffled
// positions until revealed.
type BlindTestResult struct {
	ID             string        `json:"id"`
	Models         [2]BlindModel `json:"models"`
	TestPairs      []BlindPair   `json:"testPairs"`
	CompletedVotes int           `json:"completedVotes"`
	TotalPairs     int           `json:"totalPairs"`
}

// BlindModel is one of the two compared models with its vote tally.
type BlindModel struct {
	ModelRef
	TotalVotes int `json:"totalVotes"`
}

// BlindPair is one prompt with both answers.
type BlindPair struct {
	PromptID  string           `json:"promptId"`
	Prompt    string           `json:"prompt"`
	Category  string           `json:"category"`
	Responses [2]BlindResponse `json:"responses"`
	Voted     bool             `json:"voted"`
	Revealed  bool             `json:"revealed"`
}

// BlindResponse is the answer shown at one position. ModelIndex points into
// BlindTestResult.Models.
type BlindResponse struct {
	Position   string `json:"position"`
	ModelIndex int    `json:"modelIndex"`
	Response   string `json:"response"`
	Failed     bool   `json:"failed,omitempty"`
	Votes      int    `json:"votes"`
	// ModelName is filled in once the pair is revealed.
	ModelName string `json:"modelName,omitempty"`
}

var positions = [2]string{"A", "B"}

// positionIndex maps "A"/"B" (any case) to 0/1.
func positionIndex(pos string) (int, error) {
	switch strings.ToUpper(strings.TrimSpace(pos)) {
	case "A":
		return 0, nil
	case "B":
		return 1, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPosition, pos)
}

// RecordVote records a vote for the answer at position ("A" or "B") of the
// pair for promptID. Each pair takes one vote.
func RecordVote(bt *BlindTestResult, promptID, position string) error {
	idx, err := positionIndex(position)
	if err != nil {
		return err
	}
	for i := range bt.TestPairs {
		pair := &bt.TestPairs[i]
		if pair.PromptID != promptID {
			continue
		}
		if pair.Voted {
			return fmt.Errorf("%w: %s", ErrAlreadyVoted, promptID)
		}
		pair.Voted = true
		pair.Responses[idx].Votes++
		if m := pair.Responses[idx].ModelIndex; m >= 0 && m < len(bt.Models) {
			bt.Models[m].TotalVotes++
		}
		bt.CompletedVotes++
		return nil
	}
	return fmt.Errorf("%w: %s", ErrPromptNotFound, promptID)
}

// Reveal exposes which model answered at each position.
func Reveal(bt *BlindTestResult) {
	for i := range bt.TestPairs {
		pair := &bt.TestPairs[i]
		pair.Revealed = true
		for j := range pair.Responses {
			if m := pair.Responses[j].ModelIndex; m >= 0 && m < len(bt.Models) {
				pair.Responses[j].ModelName = bt.Models[m].Name
			}
		}
	}
}

// Masked returns a copy safe to show voters: unrevealed pairs lose their
// model index so positions cannot be traced back to a model.
func (bt *BlindTestResult) Masked() *BlindTestResult {
	out := *bt
	out.TestPairs = make([]BlindPair, len(bt.TestPairs))
	for i, pair := range bt.TestPairs {
		if !pair.Revealed {
			for j := range pair.Responses {
				pair.Responses[j].ModelIndex = -1
				pair.Responses[j].ModelName = ""
			}
		}
		out.TestPairs[i] = pair
	}
	return &out
}

type blindProcedure struct {
	o      *Orchestrator
	models [2]llm.Endpoint

	prompts []dataset.PromptRecord
	order   [][2]int
	outs    [][2]llm.Outcome
}

func (p *blindProcedure) selectPrompts(all []dataset.PromptRecord) ([]dataset.PromptRecord, error) {
	p.prompts = all
	p.order = make([][2]int, len(all))
	for i := range all {
		perm := p.o.rand.Perm(2)
		p.order[i] = [2]int{perm[0], perm[1]}
	}
	p.outs = make([][2]llm.Outcome, len(all))
	return all, nil
}

func (p *blindProcedure) dispatch(ctx context.Context) error {
	return p.o.forEach(ctx, len(p.prompts)*2, func(ctx context.Context, i int) {
		pi, pos := i/2, i%2
		prompt := p.prompts[pi]
		ep := p.models[p.order[pi][pos]]
		out := p.o.call(ctx, prompt.Prompt, ep)
		logCall(BlindTest, prompt, ep, out)
		p.outs[pi][pos] = out
	})
}

// score is a no-op: blind answers are scored by human votes later.
func (p *blindProcedure) score(context.Context) error { return nil }

func (p *blindProcedure) aggregate(res *Result) {
	bt := &BlindTestResult{
		ID: uuid.NewString(),
		Models: [2]BlindModel{
			{ModelRef: refOf(p.models[0])},
			{ModelRef: refOf(p.models[1])},
		},
		TestPairs:  make([]BlindPair, len(p.prompts)),
		TotalPairs: len(p.prompts),
	}
	for i, prompt := range p.prompts {
		pair := BlindPair{
			PromptID: prompt.ID,
			Prompt:   prompt.Prompt,
			Category: prompt.Category,
		}
		for pos := range 2 {
			out := p.outs[i][pos]
			pair.Responses[pos] = BlindResponse{
				Position:   positions[pos],
				ModelIndex: p.order[i][pos],
				Response:   out.Display(),
				Failed:     !out.OK(),
			}
		}
		bt.TestPairs[i] = pair
	}
	res.BlindTest = bt
}
