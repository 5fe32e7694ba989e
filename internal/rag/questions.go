package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/llm"
)

// Question is one generated multiple-choice question.
type Question struct {
	Question      string   `json:"question"`
	Choices       []string `json:"choices"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// QuestionRequest describes a structured question-generation call.
type QuestionRequest struct {
	Topic         string
	CollectionID  string
	QuestionCount int
	Difficulty    string
	QuestionTypes []string
	Model         string
}

// QuestionResult is the structured question-generation envelope.
type QuestionResult struct {
	Topic             string     `json:"topic"`
	Questions         []Question `json:"questions"`
	Difficulty        string     `json:"difficulty"`
	QuestionTypes     []string   `json:"question_types"`
	ContextUsed       bool       `json:"context_used"`
	ContextChunksUsed int        `json:"context_chunks_used"`
}

// difficultyPhrases is the closed difficulty enumeration. Unrecognized
// values fall back to medium.
var difficultyPhrases = map[string]string{
	"easy":   "Make the questions simple, testing facts stated directly in the material.",
	"medium": "Make the questions moderately challenging, requiring comprehension of the material.",
	"hard":   "Make the questions challenging, requiring deep understanding and inference.",
}

// questionTypePhrases is the closed question-type enumeration. Unrecognized
// types are passed through verbatim.
var questionTypePhrases = map[string]string{
	"factual":     "factual recall",
	"analytical":  "analysis and interpretation",
	"application": "applying concepts to new situations",
	"synthesis":   "synthesizing multiple ideas",
}

func difficultyPhrase(difficulty string) string {
	if phrase, ok := difficultyPhrases[difficulty]; ok {
		return phrase
	}
	return difficultyPhrases["medium"]
}

func questionTypePhrase(questionType string) string {
	if phrase, ok := questionTypePhrases[questionType]; ok {
		return phrase
	}
	return questionType
}

// GenerateQuestions produces a validated set of multiple-choice questions
// about the topic, grounded in the collection's content when available.
//
// The provider's response must be a JSON array of question objects; any
// parse or validation failure substitutes a single deterministic fallback
// question rather than failing the call. Only a generation-provider failure
// is surfaced as an error. The result is truncated, never padded, to the
// requested count.
func (s *Service) GenerateQuestions(ctx context.Context, req QuestionRequest) (*QuestionResult, error) {
	contexts, used := s.retrieveContext(ctx, req.Topic, req.CollectionID, questionContextK)

	prompt := buildQuestionPrompt(req, contexts)

	messages := []llm.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: fmt.Sprintf("Generate %d multiple-choice questions about: %s", req.QuestionCount, req.Topic)},
	}

	response, err := s.llm.Complete(ctx, messages, req.Model)
	if err != nil {
		return nil, fmt.Errorf("generating questions: %w", err)
	}

	questions, err := parseQuestions(response)
	if err != nil {
		// Terminal recovery path: substitute the fallback question instead
		// of escalating. The caller always gets a usable result.
		s.logger.Warn("question validation failed, substituting fallback",
			zap.String("topic", req.Topic),
			zap.Error(err),
		)
		questions = []Question{fallbackQuestion(req.Topic)}
	}

	if req.QuestionCount > 0 && len(questions) > req.QuestionCount {
		questions = questions[:req.QuestionCount]
	}

	return &QuestionResult{
		Topic:             req.Topic,
		Questions:         questions,
		Difficulty:        req.Difficulty,
		QuestionTypes:     req.QuestionTypes,
		ContextUsed:       used,
		ContextChunksUsed: len(contexts),
	}, nil
}

// retrieveContext fetches up to k chunks relevant to the topic. Missing
// collections and retrieval failures degrade to no context.
func (s *Service) retrieveContext(ctx context.Context, topic, collectionID string, k int) ([]string, bool) {
	if collectionID == "" {
		return nil, false
	}

	index, err := s.registry.Get(collectionID)
	if err != nil {
		s.logger.Warn("collection not found for question generation",
			zap.String("collection_id", collectionID),
		)
		return nil, false
	}

	results, err := index.SearchByText(ctx, topic, k)
	if err != nil {
		s.logger.Warn("retrieval failed for question generation, continuing without context",
			zap.String("collection_id", collectionID),
			zap.Error(err),
		)
		return nil, false
	}
	if len(results) == 0 {
		return nil, false
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return texts, true
}

// buildQuestionPrompt assembles the system instruction encoding difficulty,
// question types, the JSON output contract, and retrieved context.
func buildQuestionPrompt(req QuestionRequest, contexts []string) string {
	var b strings.Builder

	b.WriteString("You are a question generator that produces multiple-choice questions.\n\n")
	b.WriteString(difficultyPhrase(req.Difficulty))
	b.WriteString("\n")

	if len(req.QuestionTypes) > 0 {
		phrases := make([]string, len(req.QuestionTypes))
		for i, qt := range req.QuestionTypes {
			phrases[i] = questionTypePhrase(qt)
		}
		fmt.Fprintf(&b, "Focus on these question types: %s.\n", strings.Join(phrases, ", "))
	}

	b.WriteString("\nRespond with ONLY a JSON array. Each element must be an object with exactly these fields:\n")
	b.WriteString(`  "question": the question text (string)` + "\n")
	b.WriteString(`  "choices": exactly 4 answer options (array of strings)` + "\n")
	b.WriteString(`  "correct_answer": index of the correct choice, 0 to 3 (integer)` + "\n")
	b.WriteString(`  "explanation": why the answer is correct (string)` + "\n")

	if len(contexts) > 0 {
		b.WriteString("\nBase the questions on the following context:\n\n")
		for i, text := range contexts {
			fmt.Fprintf(&b, "Context %d:\n%s\n\n", i+1, text)
		}
	} else {
		b.WriteString("\nNo source context is available; base the questions on general knowledge of the topic.\n")
	}

	return b.String()
}

// parseQuestions parses and validates the provider's response against the
// output contract: a top-level JSON array whose elements carry all four
// required fields, exactly 4 choices, and a correct_answer in [0, 3].
func parseQuestions(response string) ([]Question, error) {
	payload := stripCodeFence(response)

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, fmt.Errorf("response is not a JSON array: %w", err)
	}

	questions := make([]Question, 0, len(items))
	for i, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil {
			return nil, fmt.Errorf("question %d: not an object: %w", i, err)
		}
		for _, key := range []string{"question", "choices", "correct_answer", "explanation"} {
			if _, ok := fields[key]; !ok {
				return nil, fmt.Errorf("question %d: missing field %q", i, key)
			}
		}

		var q Question
		if err := json.Unmarshal(item, &q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		if len(q.Choices) != 4 {
			return nil, fmt.Errorf("question %d: expected 4 choices, got %d", i, len(q.Choices))
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer > 3 {
			return nil, fmt.Errorf("question %d: correct_answer out of range: %d", i, q.CorrectAnswer)
		}

		questions = append(questions, q)
	}

	return questions, nil
}

// stripCodeFence removes a surrounding markdown code fence, which chat models
// frequently wrap JSON output in despite instructions.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// fallbackQuestion is the deterministic substitute used when the provider's
// output violates the contract. It never fails.
func fallbackQuestion(topic string) Question {
	return Question{
		Question: fmt.Sprintf("Which of the following best describes the topic %q?", topic),
		Choices: []string{
			"A topic unrelated to the provided material",
			"A minor detail mentioned in passing",
			"A concept contradicted by the material",
			fmt.Sprintf("The subject %q as covered by the provided material", topic),
		},
		CorrectAnswer: 3,
		Explanation:   "The generated questions could not be validated, so this placeholder refers back to the requested topic.",
	}
}
