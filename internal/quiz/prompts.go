package quiz

import (
	"fmt"
	"strings"
)

// SystemPrompt is the system prompt for quiz generation.
const SystemPrompt = `You are an educational quiz generator that creates engaging, comprehension-based questions from book passages.

CRITICAL RULES:
1. Your quiz questions MUST be directly based ONLY on the provided passage text
2. Do NOT use information from outside the passage - stay strictly within the given text
3. All choices and feedback must reference specific details from the passage
4. Test understanding, not just memorization
5. Questions should have clear, unambiguous correct answers based on the passage

Always return valid JSON only, no markdown formatting or code blocks.`

// passageTemplate labels one passage: index, total, text.
const passageTemplate = `PASSAGE %d of %d:
"""
%s
"""`

// UserPromptTemplate is the user prompt for quiz generation. Arguments:
// question count, page context, passages, question count.
const UserPromptTemplate = `Generate %d quiz questions from the following book passages%s, one question per passage.

IMPORTANT: Each question and ALL of its answer choices MUST be grounded ONLY in its own passage. Do not use any information not explicitly stated in that text.

%s

Return a JSON object with this exact structure:
{
  "questions": [
    {
      "question": "Your quiz question here - must be answerable using ONLY its passage",
      "choices": [
        {
          "text": "Choice 1 text - must reference content from the passage",
          "isCorrect": true,
          "feedback": "Feedback explaining why this is correct, referencing the passage"
        },
        {
          "text": "Choice 2 text - must reference content from the passage",
          "isCorrect": false,
          "feedback": "Feedback explaining why this is incorrect, referencing the passage"
        },
        {
          "text": "Choice 3 text - must reference content from the passage",
          "isCorrect": false,
          "feedback": "Feedback explaining why this is incorrect, referencing the passage"
        },
        {
          "text": "Choice 4 text - must reference content from the passage",
          "isCorrect": false,
          "feedback": "Feedback explaining why this is incorrect, referencing the passage"
        }
      ],
      "summary": "Brief 1-2 sentence summary of ONLY what is in this passage"
    }
  ]
}

Requirements:
- Provide exactly %d questions, in passage order
- Provide exactly 4 choices per question
- Only ONE choice per question should have isCorrect: true
- ALL choices must be answerable/verifiable using ONLY the provided passage
- Make each question test comprehension of main ideas in the passage, not trivia
- Keep choices concise (1-2 sentences max)
- Provide constructive feedback that references specific details from the passage
- Do NOT add information not in the passages`

// BuildUserPrompt renders the user prompt for the given passages. A page
// number above zero is mentioned as context.
func BuildUserPrompt(passages []string, pageNumber int) string {
	blocks := make([]string, len(passages))
	for i, p := range passages {
		blocks[i] = fmt.Sprintf(passageTemplate, i+1, len(passages), p)
	}

	pageContext := ""
	if pageNumber > 0 {
		pageContext = fmt.Sprintf(" (from around page %d of the book)", pageNumber)
	}

	return fmt.Sprintf(UserPromptTemplate,
		len(passages),
		pageContext,
		strings.Join(blocks, "\n\n"),
		len(passages),
	)
}
