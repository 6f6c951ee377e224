// Package suggest derives follow-up prompt suggestions from assistant replies.
//
// Generation is pure and deterministic: the reply text is matched
// case-insensitively against an ordered rule table, the first matching rule
// wins, and the result is capped at three prompts. A YAML rule file can
// replace the built-in table so the desktop shell can restyle its prompts
// without a rebuild.
package suggest
