// Package scoring rates article importance on a 0-100 scale.
//
// The final score is the sum of three capped signals:
//
//   - LLM (0-50): impact, innovation and timeliness sub-scores from a
//     completion call, each clamped to its own range.
//   - Structural (0-30): keyword hits in the title and lead paragraph plus
//     embedding similarity between the body and the keyword list.
//   - Metadata (0-20): trust tier of the source domain.
//
// ScoreBatch evaluates several articles per completion call and matches the
// reply back by the index each article was given in the prompt. Articles the
// reply omits are re-evaluated one at a time. Upstream failures never reach
// the caller; they degrade the affected signal and are counted in Stats.
package scoring
