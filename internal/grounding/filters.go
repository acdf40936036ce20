package grounding

import (
	"strings"
)

// OffTopicReply is returned for questions with no dog-related keyword.
const OffTopicReply = "I can only help with dog-related questions."

// greetingPhrases match anywhere in a message.
var greetingPhrases = []string{
	"hello",
	"hey there",
	"hi there",
	"good morning",
	"good afternoon",
	"good evening",
	"greetings",
	"howdy",
}

// greetingWords only match a whole message; as substrings they would hit
// words like "this" or "chihuahua".
var greetingWords = map[string]bool{
	"hi":   true,
	"hey":  true,
	"hiya": true,
	"yo":   true,
	"sup":  true,
}

// GreetingReplies are the canned answers to a greeting.
var GreetingReplies = []string{
	"Hello! I'm your dog assistant. Ask me about breeds, diet, training, health or grooming.",
	"Hi there! Upload a dog photo or ask me anything about dogs.",
	"Hey! What would you like to know about dogs today?",
	"Woof! I'm here to help with all your dog questions.",
}

// dogKeywords mark a question as dog-related. Some are stems ("vaccin",
// "groom") so inflections match too.
var dogKeywords = []string{
	"dog", "puppy", "pup", "canine", "breed",
	"hound", "terrier", "retriever", "shepherd", "spaniel", "poodle", "bulldog",
	"diet", "feed", "food", "nutrition", "kibble", "treat",
	"train", "groom", "bark", "leash", "kennel", "vet", "vaccin", "walk", "exercise", "health",
	"lifespan", "life span", "temperament", "shed", "coat", "fur", "paw", "tail",
	"neuter", "spay", "flea", "tick", "worm",
}

// IsGreeting reports whether a message is a greeting.
func IsGreeting(message string) bool {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return false
	}
	if greetingWords[strings.Trim(msg, "!.?, ")] {
		return true
	}
	for _, p := range greetingPhrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsDogTopic reports whether a question mentions any dog-related keyword.
func IsDogTopic(question string) bool {
	q := strings.ToLower(question)
	for _, k := range dogKeywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	return false
}
