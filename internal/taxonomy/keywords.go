package taxonomy

// TypeKeywords maps each task type to the substrings that vote for it during
// classification (spec §4.1 step 1). Order does not affect scoring but is
// kept stable for readability.
var TypeKeywords = map[TaskType][]string{
	Research: {
		"research", "investigate", "study", "explore", "survey", "analyze trends",
		"literature", "compare sources", "find information about",
	},
	InformationRetrieval: {
		"find", "look up", "search for", "what is", "who is", "tell me about",
		"retrieve", "fetch",
	},
	ContentCreation: {
		"write", "draft", "compose", "create content", "blog post", "article",
		"generate text", "summarize", "polish",
	},
	DataAnalysis: {
		"analyze data", "anomal", "statistics", "sales", "dataset", "chart",
		"trend", "metrics report", "aggregate",
	},
	FileOps: {
		"read the file", "read file", "write file", "edit file", "delete file",
		"move file", "rename", "list files", "directory",
	},
	WebAutomation: {
		"browse", "click", "navigate to", "scrape", "fill out form", "automate the web",
		"web page",
	},
	CodeDevelopment: {
		"code", "implement", "refactor", "debug", "clone", "repository", "github",
		"pull request", "unit test", "compile",
	},
	ProjectManagement: {
		"plan", "roadmap", "milestone", "sprint", "track progress", "assign task",
		"schedule",
	},
	CommunicationTask: {
		"email", "message", "notify", "send", "reply", "slack", "chat with",
	},
	ReasoningTask: {
		"reason about", "think through", "solve", "puzzle", "logic", "deduce",
		"figure out why",
	},
}

// ComplexityKeywords maps each complexity bucket to the substrings that bump
// the running complexity estimate toward it (spec §4.1 step 2).
var ComplexityKeywords = map[Complexity][]string{
	Moderate: {"and then", "after that", "multiple", "several", "a few steps"},
	Complex:  {"first", "then", "finally", "compare", "combine", "cross-reference"},
	Advanced: {"comprehensive", "end-to-end", "multi-step", "coordinate", "orchestrate"},
	Expert:   {"production-grade", "mission-critical", "fully autonomous", "enterprise-scale"},
}

// CapabilityKeywords maps each capability category to the substrings that
// vote for requiring it (spec §4.1 step 3).
var CapabilityKeywords = map[Capability][]string{
	File: {
		"file", "directory", "folder", "read", "write", "notes.txt", "document",
	},
	Web: {
		"web", "browser", "website", "url", "http", "page",
	},
	Search: {
		"search", "google", "look up", "find information", "query the web",
	},
	Database: {
		"database", "sql", "query", "table", "records", "our database",
	},
	Automation: {
		"automate", "workflow", "trigger", "schedule", "cron",
	},
	Development: {
		"code", "repository", "github", "compile", "build", "clone", "unit test",
	},
	Communication: {
		"email", "message", "slack", "notify", "send", "chat",
	},
	Analysis: {
		"analyze", "summarize", "report", "insight", "anomaly", "compare",
	},
	Reasoning: {
		"reason", "think", "logic", "deduce", "solve",
	},
	Cognitive: {
		"understand", "interpret", "infer", "classify",
	},
	System: {
		"process", "system", "service", "daemon", "terminal", "shell",
	},
	Graphics: {
		"chart", "graph", "diagram", "visualize", "plot", "image",
	},
	DataProcessing: {
		"transform", "parse", "etl", "pipeline", "clean the data",
	},
}

// BaseCapabilitiesByType lists capabilities automatically required by a task
// type regardless of keyword hits, e.g. research always implies search+web.
var BaseCapabilitiesByType = map[TaskType][]Capability{
	Research:             {Search, Web},
	InformationRetrieval: {Search},
	ContentCreation:      {},
	DataAnalysis:         {Analysis, DataProcessing},
	FileOps:              {File},
	WebAutomation:        {Web, Automation},
	CodeDevelopment:      {Development},
	ProjectManagement:    {Automation},
	CommunicationTask:    {Communication},
	ReasoningTask:        {Reasoning},
}

// BaseStepsByComplexity gives the starting estimated-step count for a
// complexity bucket before per-request adjustments (spec §4.1 step 4).
var BaseStepsByComplexity = map[Complexity]int{
	Simple:   1,
	Moderate: 3,
	Complex:  6,
	Advanced: 12,
	Expert:   20,
}

// ParallelKeywords and SequentialKeywords feed the parallelizable heuristic
// (spec §4.1 step 5): parallelizable = count(parallel) > count(sequential).
var (
	ParallelKeywords = []string{
		"simultaneously", "in parallel", "at the same time", "concurrently", "meanwhile",
	}
	SequentialKeywords = []string{
		"then", "after that", "next", "finally", "once done", "followed by",
	}
)

// IterationKeywords feed requires_iteration (spec §4.1 step 6).
var IterationKeywords = []string{
	"iterate", "iterate until", "keep refining", "until good", "polish", "improve until",
	"revise", "loop until",
}

// ApprovalKeywords feed requires_human_input (spec §4.1 step 7).
var ApprovalKeywords = []string{
	"approve", "approval", "review before", "ask me first", "confirm with me", "get sign-off",
}

// ActionVerbs and VagueWords feed the confidence heuristic (spec §4.1 step 8).
var (
	ActionVerbs = []string{
		"read", "write", "search", "analyze", "build", "create", "deploy", "fetch",
		"summarize", "compare", "clone", "install",
	}
	VagueWords = []string{"something", "stuff", "things", "maybe", "somehow", "whatever"}
)

// QualityKeywords feed the evaluator-optimizer selection criterion
// ("quality-critical language detected", spec §4.3).
var QualityKeywords = []string{
	"high-quality", "polished", "best possible", "production-grade", "until good",
	"excellent", "flawless",
}

// FunctionWords are stripped during normalization (spec §4.1) but only when
// doing so would still leave at least two tokens, so short imperative
// requests like "read it" are not gutted to a single word.
var FunctionWords = map[string]bool{
	"a": true, "an": true, "the": true, "to": true, "of": true, "in": true,
	"on": true, "for": true, "with": true, "is": true, "are": true, "please": true,
	"me": true, "my": true, "our": true, "it": true,
}
