package api

import "net/http"

// handleAudioBriefings implements POST /api/audio/briefings. Audio
// synthesis is an external collaborator: the daemon's job is only to
// expose the endpoint and return a normalized
// envelope rather than a bare 404, so the CLI/UI can tell "not wired up
// here" apart from "no such route".
func (d Deps) handleAudioBriefings(w http.ResponseWriter, r *http.Request) {
	writeNotImplemented(w, "audio briefing synthesis")
}
