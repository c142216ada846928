// Package ingestion runs keyword ingestion.
//
// An Orchestrator admits one run at a time. A run walks every ACTIVE
// keyword in turn: it fetches candidates, drops URLs already in the ledger,
// scores the survivors in one batch, persists them, appends their URLs to
// the ledger and hands each saved article to the retrieval index. Progress
// is pushed to subscribed sinks as it happens; when the run ends, every
// sink receives the terminal event and is closed.
package ingestion
