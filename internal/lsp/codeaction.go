package lsp

import (
	"encoding/json"
)

// handleCodeAction offers the registered provider's fixes for the first
// line of the requested range.
func (s *Server) handleCodeAction(msg *rpcMessage) error {
	var params codeActionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, -32602, "invalid params")
	}
	uri := canonicalURI(params.TextDocument.URI)
	s.mu.Lock()
	provider, text, docURI := s.provider, s.docText, s.docURI
	s.mu.Unlock()

	actions := make([]codeAction, 0)
	if provider != nil && uri == docURI {
		for i, fix := range provider.FixesAt(params.Range.Start.Line + 1) {
			actions = append(actions, codeAction{
				Title:       fix.Title,
				Kind:        "quickfix",
				IsPreferred: i == 0,
				Edit: workspaceEdit{Changes: map[string][]textEdit{
					params.TextDocument.URI: {{
						Range:   toLSPRange(text, fix.Edit.Range),
						NewText: fix.Edit.Text,
					}},
				}},
			})
		}
	}
	return s.sendResponse(msg.ID, actions)
}
