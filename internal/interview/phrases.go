package interview

// Spoken phrases used across the interview flow. The client renders these as
// synthesized audio, so wording changes are user-facing.
const (
	phraseIntro = "Hi there! My name is Aron, and I'll be your interviewer today."

	phraseIntroThanks = "Thanks for the introduction. It's great to learn a bit about you. Let's get started with the interview."
	phraseIntroSilent = "Let's begin with the interview."

	phraseRetry = "Please share your thoughts when you're ready."
	phraseSkip  = "No response detected. Let's move on."

	phraseOffTopic = "Please try to answer the question related to your experience."
	phraseRepeat   = "Sure, let me repeat the question."
	phraseChange   = "Unfortunately, we can't change the question, but feel free to use any academic, co-curricular, or personal experiences to answer it."
	phraseThinking = "Sure, take your time."

	phraseTermination = "Interview terminated due to inappropriate behavior."
	phraseTransition  = "Thank you for your response. Let's move to the next topic."
	phraseCompletion  = "Thank you for your time. The interview session is now complete."
)

// terminateReasonInappropriate is sent in the terminate envelope when
// moderation ends the interview.
const terminateReasonInappropriate = "inappropriate"
