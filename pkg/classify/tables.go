package classify

// Specialist identifies which heavy specialist a challenge invokes.
type Specialist string

const (
	SpecialistCoding     Specialist = "coding"
	SpecialistReasoning  Specialist = "reasoning"
	SpecialistEnterprise Specialist = "enterprise"
	SpecialistMultimodal Specialist = "multimodal"
	SpecialistWisdom     Specialist = "wisdom"
)

// specialistPriority breaks score ties between challenge sub-vocabularies.
// The order is part of the classifier contract: changing it moves borderline
// utterances between specialists and breaks analytics continuity.
var specialistPriority = []Specialist{
	SpecialistCoding,
	SpecialistReasoning,
	SpecialistEnterprise,
	SpecialistMultimodal,
	SpecialistWisdom,
}

// TaskFamily is the coarse domain label derived from an utterance.
type TaskFamily string

const (
	FamilyCoding     TaskFamily = "coding"
	FamilyReasoning  TaskFamily = "reasoning"
	FamilyDialogue   TaskFamily = "dialogue"
	FamilyWisdom     TaskFamily = "wisdom"
	FamilyMultimodal TaskFamily = "multimodal"
	FamilyEnterprise TaskFamily = "enterprise"
	FamilyGeneral    TaskFamily = "general"
)

// Tables holds the curated vocabularies the classifier and the complexity
// estimator run on. Callers pass tables in explicitly so classification is a
// pure function of (text, tables); tests can substitute trimmed tables.
type Tables struct {
	// Openers are social phrases that short-circuit to dialogue when the
	// utterance has at most three words.
	Openers []string

	// Challenge maps each heavy specialist to its challenge vocabulary.
	Challenge map[Specialist][]string

	// Meta is the meta-intelligence vocabulary (ethics, philosophy, ...).
	Meta []string

	// Command is the vocabulary of actionable verbs and system references.
	Command []string

	// Family vocabularies drive task-family detection and the coding
	// keyword boost in the complexity estimator.
	Coding     []string
	Reasoning  []string
	Wisdom     []string
	Enterprise []string
	Multimodal []string
}

// DefaultTables returns the curated production vocabularies.
func DefaultTables() *Tables {
	return &Tables{
		Openers: []string{
			"hi", "hello", "hey", "yo", "howdy", "greetings",
			"good morning", "good evening", "good night",
			"thanks", "thank you", "thx", "cheers",
			"ok", "okay", "cool", "nice", "got it",
			"bye", "goodbye", "later", "sup",
		},
		Challenge: map[Specialist][]string{
			SpecialistCoding: {
				"entire codebase", "massive refactor", "monorepo migration",
				"compiler design", "formal verification", "legacy rewrite",
				"zero-downtime migration",
			},
			SpecialistReasoning: {
				"logical proof", "formal logic", "theorem", "deep analysis",
				"first principles", "chain of reasoning", "rigorous derivation",
			},
			SpecialistEnterprise: {
				"enterprise architecture", "microservices", "distributed",
				"massive context", "consistency guarantees", "high availability",
				"scalable", "event sourcing", "multi-region",
			},
			SpecialistMultimodal: {
				"multimodal", "cross-modal", "vision pipeline",
				"image and text", "video understanding", "audio transcription",
			},
			SpecialistWisdom: {
				"philosophical contemplation", "meaning of life",
				"ethical dilemma", "moral philosophy", "existential",
				"transcendent synthesis",
			},
		},
		Meta: []string{
			"ethics", "ethical", "wisdom", "philosophy", "philosophical",
			"meta", "transcendent", "moral", "virtue", "enlightenment",
		},
		Command: []string{
			"fix", "debug", "implement", "refactor", "write", "build",
			"deploy", "analyze", "analyse", "create", "generate", "install",
			"compile", "run", "test", "optimize", "update", "rename",
			"delete", "parse", "parser", "file", "files", "directory",
			"folder", "script", "code", "function", "class", "bug", "error",
			"crash", "api", "database", "server", "log", "git", "commit",
			"docker", "lint",
		},
		Coding: []string{
			"code", "coding", "function", "debug", "fix", "bug", "implement",
			"refactor", "algorithm", "compile", "parser", "api", "build",
			"deploy", "design", "architecture", "microservices", "distributed",
			"database", "script", "test", "optimize", "git", "docker",
		},
		Reasoning: []string{
			"prove", "proof", "theorem", "logic", "logical", "deduce",
			"infer", "reasoning", "syllogism", "premise", "step by step",
		},
		Wisdom: []string{
			"ethics", "ethical", "wisdom", "philosophy", "philosophical",
			"moral", "virtue", "meaning", "purpose", "existential",
		},
		Enterprise: []string{
			"enterprise", "scalable", "scalability", "compliance",
			"governance", "sla", "multi-region", "availability",
		},
		Multimodal: []string{
			"image", "images", "multimodal", "picture", "diagram", "vision",
			"video", "audio", "screenshot",
		},
	}
}
