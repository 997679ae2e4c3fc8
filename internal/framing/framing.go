// Package framing wraps a user utterance, and optionally the stitched
// transcript of earlier turns, in run-unique textual sentinels, and later
// recovers the assistant's new answer from the raw process output.
//
// A frame for run id "abc" looks like:
//
//	<<CTX:abc:START>>
//	User: ...
//	Assistant: ...
//	<<CTX:abc:END>>
//	<<USR:abc:START>>
//	the new question
//	<<USR:abc:END>>
//	(instruction to write the answer after the next line)
//	<<ANS:abc:START>>
//
// Both functions are pure.
package framing

import (
	"strings"
)

// Sentinel tags.
const (
	TagContext = "CTX"
	TagUser    = "USR"
	TagAnswer  = "ANS"
)

// Start returns the opening sentinel for tag in run runID.
func Start(tag, runID string) string {
	return "<<" + tag + ":" + runID + ":START>>"
}

// End returns the closing sentinel for tag in run runID.
func End(tag, runID string) string {
	return "<<" + tag + ":" + runID + ":END>>"
}

// Frame builds the single flat prompt handed to the assistant. A nil
// stitched context omits the context block entirely.
//
// Occurrences of this run's own sentinel prefixes inside caller text are
// defused first, so neither the user nor an earlier answer can inject an
// answer boundary for the current run.
func Frame(runID string, stitched *string, userText string) string {
	var sb strings.Builder

	if stitched != nil {
		sb.WriteString(Start(TagContext, runID))
		sb.WriteString("\n")
		sb.WriteString(defuse(runID, *stitched))
		sb.WriteString("\n")
		sb.WriteString(End(TagContext, runID))
		sb.WriteString("\n")
	}

	sb.WriteString(Start(TagUser, runID))
	sb.WriteString("\n")
	sb.WriteString(defuse(runID, userText))
	sb.WriteString("\n")
	sb.WriteString(End(TagUser, runID))
	sb.WriteString("\n\n")
	sb.WriteString(instruction(runID, stitched != nil))

	return sb.String()
}

func instruction(runID string, withContext bool) string {
	var sb strings.Builder
	if withContext {
		sb.WriteString("The block between the ")
		sb.WriteString(TagContext)
		sb.WriteString(" markers is the earlier conversation, for reference only. ")
	}
	sb.WriteString("Answer the request between the ")
	sb.WriteString(TagUser)
	sb.WriteString(" markers. Do not repeat the conversation or the request. ")
	sb.WriteString("Put nothing before the following line and write your reply after it:\n")
	sb.WriteString(Start(TagAnswer, runID))
	return sb.String()
}

// Extract recovers the assistant's newly generated answer from raw output.
//
// When the answer sentinel for runID is present, everything strictly after
// its last occurrence is returned, trimmed. Without a sentinel the raw text is returned trimmed and
// otherwise untouched. Extract never fails.
//
// The stitched context is accepted for symmetry with Frame; an echo of it
// always precedes the sentinel and is dropped with everything else there.
func Extract(runID string, _ *string, raw string) string {
	start := Start(TagAnswer, runID)
	idx := strings.LastIndex(raw, start)
	if idx < 0 {
		return strings.TrimSpace(raw)
	}

	return strings.TrimSpace(raw[idx+len(start):])
}

// defuse breaks up any sentinel prefix belonging to runID inside text.
func defuse(runID, text string) string {
	if runID == "" || !strings.Contains(text, ":"+runID+":") {
		return text
	}
	for _, tag := range []string{TagContext, TagUser, TagAnswer} {
		prefix := "<<" + tag + ":" + runID + ":"
		text = strings.ReplaceAll(text, prefix, "< <"+tag+":"+runID+":")
	}
	return text
}
