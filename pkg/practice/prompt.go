package practice

import (
	"fmt"
	"strings"
)

const outputContract = `OUTPUT:
You MUST return ONLY a single, raw JSON object with no extra text or markdown formatting.
The JSON object must have the following keys: "questionText", "correctAnswer", and "questionType".`

// BuildPrompt returns the generation instructions for one question of type
// qtype. Every prompt lists recent verbatim as questions not to repeat.
func BuildPrompt(level, topic string, qtype QuestionType, recent []string) (string, error) {
	var b strings.Builder

	switch qtype {
	case MultipleChoiceWord:
		fmt.Fprintf(&b, `You are an expert German teacher creating a vocabulary exercise.
Your task is to generate one multiple-choice question for a German student at the %[1]s level.
The topic is "%[2]s".

CRITICAL INSTRUCTIONS:
1. Choose exactly one common German word suitable for the %[1]s level: a noun with its article, a verb, or an adjective.
2. Give exactly one correct English translation of that word.
3. Give exactly two incorrect English translations that belong to the same theme and look plausible.
4. Shuffle the three options before returning them; the correct one must not always come first.

`, level, topic)
	case FillInTheBlank:
		fmt.Fprintf(&b, `You are an expert German teacher. Your task is to generate one single, high-quality, unambiguous fill-in-the-blank question in German.
The question is for a student at the %[1]s level.
The topic is "%[2]s".

CRITICAL INSTRUCTIONS:
1. Choose exactly one grammar point appropriate for this level.
2. Introduce exactly one new vocabulary word suitable for this level.
3. Write one complete German sentence (8-15 words) containing a single "___" placeholder.
4. The sentence context must make the correct answer the only possible choice.
5. Use the new vocabulary in its correct form (case, gender, number) and do not test any other rules.
6. Do not include any extra text, explanation or formatting.
7. GOOD EXAMPLE: "Nach der Arbeit gehe ich mit meiner Freundin ___ Kino." Answer: "ins". Only one word fits.
8. BAD EXAMPLE: "Das ist meine ___." This is bad because many nouns can fit.

`, level, topic)
	case TranslateENDE:
		fmt.Fprintf(&b, `You are an expert German teacher creating a translation exercise.
Your task is to generate a simple English sentence for a German student at the %[1]s level to translate.
The topic is "%[2]s".

CRITICAL INSTRUCTIONS:
1. The English sentence must be simple, common, and appropriate for the %[1]s level.
2. The correct German translation should be a standard, natural-sounding sentence.

`, level, topic)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedQuestionType, qtype)
	}

	b.WriteString("IMPORTANT:\nDo not generate any of the following questions again:\n")
	if len(recent) == 0 {
		b.WriteString(" - (none yet)\n")
	}
	for _, text := range recent {
		fmt.Fprintf(&b, " - %s\n", text)
	}
	b.WriteString("\n")
	b.WriteString(outputContract)
	b.WriteString("\n")

	fmt.Fprintf(&b, "The JSON \"questionType\" key MUST have the exact value %q.\n", string(qtype))
	switch qtype {
	case MultipleChoiceWord:
		b.WriteString(`The "questionText" key should be the German word, with its article if it is a noun.
The "correctAnswer" key should be the correct English translation.
The JSON object must also have an "options" key: an array of exactly 3 English strings, one of which is exactly the "correctAnswer".`)
	case FillInTheBlank:
		b.WriteString(`The "questionText" key should be the German sentence with "___" as the blank.
The "correctAnswer" key should contain ONLY the word or phrase that fits in the blank.`)
	case TranslateENDE:
		b.WriteString(`The "questionText" key should be the English sentence to translate.
The "correctAnswer" key should be the correct full German translation.`)
	}

	return b.String(), nil
}

// BuildValidationPrompt asks the model to judge a translation.
func BuildValidationPrompt(original, expected, answer string) string {
	return fmt.Sprintf(`You are a German language teaching assistant. Your task is to evaluate a student's translation from English to German.

CONTEXT:
- Original English Sentence: "%s"
- A sample correct German translation: "%s"
- The student's submitted German translation: "%s"

EVALUATION CRITERIA:
1. Determine if the student's translation is grammatically correct and semantically equivalent to the original English sentence.
2. Minor differences in word choice (synonyms) or word order are acceptable if the meaning is the same and the sentence is natural-sounding.
3. For example, if the original is "I'm going to the cinema" and the student writes "Ich gehe ins Kino" or "Ich fahre ins Kino", both are correct.

OUTPUT:
You MUST return ONLY a single, raw JSON object with no extra text or markdown.
The JSON object must have the following keys:
- "isCorrect": a boolean (true or false).
- "feedback": a brief, helpful string for the student. If correct, say "Correct!" or "Great job!". If incorrect, briefly explain the mistake.`,
		original, expected, answer)
}
