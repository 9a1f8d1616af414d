package quiz

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/abdulachik/novelquiz/internal/logger"
)

const (
	// QuestionsPerQuiz is the number of questions requested per quiz.
	QuestionsPerQuiz = 5

	// Speaker is the dialogue speaker of quiz nodes.
	Speaker = "Quiz Master"
	// NodeType is the node type of quiz nodes.
	NodeType = "quiz"
	// DefaultSummary is used when the model gives no summary.
	DefaultSummary = "Quiz time! Answer the questions based on the passage you read."
)

const (
	correctFeedback   = "Correct!"
	incorrectFeedback = "Not quite. Try again."
)

func newNodeID() string {
	return "node-" + uuid.NewString()
}

// Normalize turns a validated response into a quiz node. At most
// QuestionsPerQuiz questions are kept and every question ends up with
// exactly one correct choice: the first one marked, or the first choice
// when none is.
func Normalize(resp *Response, nodeID string, log *logger.Logger) *Node {
	if log == nil {
		log = logger.NewNop()
	}

	raw := resp.Questions
	if len(raw) > QuestionsPerQuiz {
		raw = raw[:QuestionsPerQuiz]
	}
	if len(raw) < QuestionsPerQuiz {
		log.Warn("fewer questions than requested", "received", len(raw), "expected", QuestionsPerQuiz)
	}

	questions := make([]Question, 0, len(raw))
	for _, q := range raw {
		questions = append(questions, normalizeQuestion(q))
	}

	summary := resp.Summary
	if summary == "" && len(raw) > 0 {
		summary = raw[0].Summary
	}
	if summary == "" {
		summary = DefaultSummary
	}

	if nodeID == "" {
		nodeID = newNodeID()
	}

	return &Node{
		ID:                   nodeID,
		Type:                 NodeType,
		Speaker:              Speaker,
		Summary:              summary,
		Questions:            questions,
		CurrentQuestionIndex: 0,
		Next:                 newNodeID(),
	}
}

func normalizeQuestion(q RawQuestion) Question {
	correct := -1
	for i, c := range q.Choices {
		if c.IsCorrect {
			correct = i
			break
		}
	}
	if correct == -1 {
		correct = 0
	}

	choices := make([]Choice, len(q.Choices))
	for i, c := range q.Choices {
		isCorrect := i == correct

		text := c.Text
		if text == "" {
			text = fmt.Sprintf("Choice %d", i+1)
		}

		feedback := c.Feedback
		if feedback == "" {
			feedback = incorrectFeedback
			if isCorrect {
				feedback = correctFeedback
			}
		}

		choices[i] = Choice{
			ID:        fmt.Sprintf("choice-%d", i+1),
			Text:      text,
			IsCorrect: isCorrect,
			Feedback:  feedback,
		}
	}

	return Question{Question: q.Question, Choices: choices}
}

// Mock node ids.
const (
	MockNodeID   = "mock-quiz"
	MockNextNode = "mock-quiz-next"
)

const mockPassage = "The sun rose over the mountains, casting long shadows across the valley. " +
	"Birds began their morning songs as the world awakened."

// MockNode returns the fixed single-question quiz served when no model is
// available or generation fails. It is the same for every call with the
// same nodeID.
func MockNode(nodeID string) *Node {
	if nodeID == "" {
		nodeID = MockNodeID
	}

	return &Node{
		ID:      nodeID,
		Type:    NodeType,
		Speaker: Speaker,
		Text:    "Read the following passage and answer the question:\n\n\"" + mockPassage + "\"",
		Summary: DefaultSummary,
		Questions: []Question{
			{
				Question: "What time of day does the passage describe?",
				Choices: []Choice{
					{
						ID:        "choice-1",
						Text:      "The sun was setting",
						IsCorrect: false,
						Feedback:  "Incorrect. The passage says the sun rose, not set.",
					},
					{
						ID:        "choice-2",
						Text:      "It was morning time",
						IsCorrect: true,
						Feedback:  "Correct! The passage mentions 'morning songs' and the sun rising.",
					},
					{
						ID:        "choice-3",
						Text:      "It was nighttime",
						IsCorrect: false,
						Feedback:  "Incorrect. The sun was rising, which indicates morning.",
					},
					{
						ID:        "choice-4",
						Text:      "It was afternoon",
						IsCorrect: false,
						Feedback:  "Incorrect. The passage describes morning activities.",
					},
				},
			},
		},
		CurrentQuestionIndex: 0,
		Next:                 MockNextNode,
	}
}
