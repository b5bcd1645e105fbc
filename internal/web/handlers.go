// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"encoding/json"
	"net/http"

	"github.com/holomush/gatehouse/internal/auth"
	"github.com/holomush/gatehouse/pkg/errutil"
	"github.com/holomush/gatehouse/pkg/gametoken"
)

// maxBodyBytes bounds POST /characters request bodies.
const maxBodyBytes = 1 << 16

// Token kinds for the tokens-issued metric.
const (
	tokenKindAccount   = "account"
	tokenKindCharacter = "character"
)

type tokenResponse struct {
	Token string `json:"token"`
	Host  string `json:"host"`
}

type createCharacterRequest struct {
	AccountID     string `json:"accountId"`
	Password      string `json:"password"`
	CharacterName string `json:"characterName"`
	Sex           string `json:"sex"`
}

type createCharacterResponse struct {
	OK   bool   `json:"ok"`
	Name string `json:"name"`
}

type characterEntry struct {
	Name string `json:"name"`
}

type listCharactersResponse struct {
	AccountID  string           `json:"accountId"`
	Characters []characterEntry `json:"characters"`
}

// handleCreateAccount serves POST /. Failures have empty bodies.
func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	accountID, password := q.Get("accountId"), q.Get("password")
	name, sex := q.Get("characterName"), q.Get("sex")
	if accountID == "" || password == "" || name == "" || sex == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	_, err := s.gateway.CreateAccount(r.Context(), accountID, password, auth.CharacterRequest{Name: name, Sex: sex})
	if err != nil {
		s.failEmpty(w, r, "create account failed", err)
		return
	}
	if s.metrics != nil {
		s.metrics.AccountsCreated.Inc()
		s.metrics.CharactersCreated.Inc()
	}
	w.WriteHeader(http.StatusCreated)
}

// handleAccountLogin serves GET /. Missing credentials are treated as bad
// credentials.
func (s *Server) handleAccountLogin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	accountID, password := q.Get("accountId"), q.Get("password")
	if accountID == "" || password == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	token, err := s.gateway.IssueAccountToken(r.Context(), accountID, password)
	if err != nil {
		s.failEmpty(w, r, "account login failed", err)
		return
	}
	s.writeToken(w, r, token, tokenKindAccount)
}

// handleCreateCharacter serves POST /characters.
func (s *Server) handleCreateCharacter(w http.ResponseWriter, r *http.Request) {
	var req createCharacterRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidInput, "request body must be a JSON object")
		return
	}
	if req.AccountID == "" || req.Password == "" || req.CharacterName == "" || req.Sex == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidInput,
			"accountId, password, characterName and sex are required")
		return
	}

	char, err := s.gateway.CreateCharacter(r.Context(), req.AccountID, req.Password,
		auth.CharacterRequest{Name: req.CharacterName, Sex: req.Sex})
	if err != nil {
		s.failJSON(w, r, "create character failed", err)
		return
	}
	if s.metrics != nil {
		s.metrics.CharactersCreated.Inc()
	}
	s.writeJSON(w, r, http.StatusCreated, createCharacterResponse{OK: true, Name: char.Name})
}

// handleListCharacters serves GET /characters.
func (s *Server) handleListCharacters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	accountID, password := q.Get("accountId"), q.Get("password")
	if accountID == "" || password == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidInput, "accountId and password are required")
		return
	}

	owned, err := s.gateway.ListCharacters(r.Context(), accountID, password)
	if err != nil {
		s.failJSON(w, r, "list characters failed", err)
		return
	}
	resp := listCharactersResponse{
		AccountID:  accountID,
		Characters: make([]characterEntry, 0, len(owned)),
	}
	for _, summary := range owned {
		resp.Characters = append(resp.Characters, characterEntry{Name: summary.Name})
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

// handleCharacterLogin serves GET /login-character.
func (s *Server) handleCharacterLogin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	accountID, password, name := q.Get("accountId"), q.Get("password"), q.Get("characterName")
	if accountID == "" || password == "" || name == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidInput,
			"accountId, password and characterName are required")
		return
	}

	token, err := s.gateway.IssueCharacterToken(r.Context(), accountID, password, name)
	if err != nil {
		s.failJSON(w, r, "character login failed", err)
		return
	}
	s.writeToken(w, r, token, tokenKindCharacter)
}

func (s *Server) writeToken(w http.ResponseWriter, r *http.Request, token gametoken.Token, kind string) {
	encoded, err := gametoken.Encode(token)
	if err != nil {
		errutil.LogError(r.Context(), s.logger, "encode token failed", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if s.metrics != nil {
		s.metrics.TokensIssued.WithLabelValues(kind).Inc()
	}
	s.logger.InfoContext(r.Context(), "token issued", "kind", kind, "character", token.Name)
	s.writeJSON(w, r, http.StatusOK, tokenResponse{Token: encoded, Host: s.gameHost})
}

// failEmpty reports err as a bare status code.
func (s *Server) failEmpty(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ce := s.classify(r, msg, err)
	w.WriteHeader(ce.status)
}

// failJSON reports err as an errorResponse.
func (s *Server) failJSON(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ce := s.classify(r, msg, err)
	writeError(w, ce.status, ce.code, ce.message)
}

func (s *Server) classify(r *http.Request, msg string, err error) clientError {
	ce := classify(err)
	if ce.internal() {
		errutil.LogError(r.Context(), s.logger, msg, err)
		return ce
	}
	s.logger.InfoContext(r.Context(), msg, "code", errutil.Code(err))
	return ce
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WarnContext(r.Context(), "write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect
	json.NewEncoder(w).Encode(errorResponse{Error: code, Message: message})
}
