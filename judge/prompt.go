package judge

import (
	"fmt"
	"strings"
)

// DefaultCriteria are the criteria used for pairwise judge evaluations.
var DefaultCriteria = []string{"accuracy", "helpfulness", "clarity"}

func pairwiseSystemPrompt(criteria []string) string {
	var example strings.Builder
	for i, c := range criteria {
		if i > 0 {
			example.WriteString(",\n")
		}
		fmt.Fprintf(&example, "    %q: {\"model1\": <score>, \"model2\": <score>}", c)
	}

	return fmt.Sprintf(`You are an expert evaluator of AI assistants. Compare the answers of two models, Model A and Model B, to the same request and decide which one is better.

Evaluate both answers on these criteria: %s.
For every criterion give each model a score from 1 to 10, then give each model an overall score from 1 to 10.
Finally name the model with the better overall answer and explain your reasoning.

Respond with a single JSON object and nothing else:
{
  "model1_score": <overall score for Model A>,
  "model2_score": <overall score for Model B>,
  "winner": "<A or B>",
  "reasoning": "<your explanation>",
  "criteria_scores": {
%s
  }
}`, strings.Join(criteria, ", "), example.String())
}

func pairwiseUserPrompt(prompt, responseA, responseB string) string {
	return fmt.Sprintf(`Original request:
%s

Model A answer:
%s

Model B answer:
%s

Evaluate these answers using the criteria and format above.`, prompt, responseA, responseB)
}

const referenceSystemPrompt = `You are an expert evaluator of AI assistants. You compare a model's answer against a reference answer.

Score from 1 to 10 how well the model's answer matches the reference in meaning, correctness and completeness. 10 means it is equivalent to the reference, 1 means it is unrelated or wrong.

Respond with a single JSON object and nothing else:
{"score": <1-10>, "reasoning": "<short explanation>"}`

func referenceUserPrompt(prompt, reference, response string) string {
	return fmt.Sprintf(`Question:
%s

Reference answer:
%s

Model answer:
%s`, prompt, reference, response)
}
