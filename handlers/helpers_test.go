// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/doudou/engine"
	"github.com/danielhkuo/doudou/models"
	"github.com/danielhkuo/doudou/testutil"
)

type testServer struct {
	env      *testutil.TestEnv
	identity *IdentityHandler
	sessions *SessionHandler
	uploads  *UploadHandler
	votes    *VoteHandler
	results  *ResultsHandler
}

func newTestServer(t *testing.T, opts ...func(*engine.Options)) *testServer {
	t.Helper()
	env := testutil.NewTestEnv(t, opts...)
	return &testServer{
		env:      env,
		identity: NewIdentityHandler(env.Tokens, false),
		sessions: NewSessionHandler(env.Engine, env.Tokens, env.Config),
		uploads:  NewUploadHandler(env.Engine, env.Tokens, env.Config),
		votes:    NewVoteHandler(env.Engine, env.Tokens),
		results:  NewResultsHandler(env.Engine, env.Tokens),
	}
}

func intPtr(n int) *int { return &n }

func (s *testServer) createSession(t *testing.T, headers map[string]string, maxUploads, maxVotes int) models.CreateSessionResponse {
	t.Helper()
	req := testutil.MakeRequest("POST", "/sessions", models.CreateSessionRequest{
		Name:       "Pet Photos",
		MaxUploads: intPtr(maxUploads),
		MaxVotes:   intPtr(maxVotes),
	}, headers)
	w := httptest.NewRecorder()
	s.sessions.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create session failed: %d - %s", w.Code, w.Body.String())
	}
	var resp models.CreateSessionResponse
	testutil.AssertJSON(t, w, &resp)
	return resp
}

func (s *testServer) join(t *testing.T, headers map[string]string, code string) models.Participant {
	t.Helper()
	req := testutil.MakeRequest("POST", "/sessions/"+code+"/join", nil, headers)
	req.SetPathValue("code", code)
	w := httptest.NewRecorder()
	s.sessions.Join(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("join failed: %d - %s", w.Code, w.Body.String())
	}
	var p models.Participant
	testutil.AssertJSON(t, w, &p)
	return p
}

func (s *testServer) requestSlot(headers map[string]string, code string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("POST", "/sessions/"+code+"/uploads/slot", nil, headers)
	req.SetPathValue("code", code)
	w := httptest.NewRecorder()
	s.uploads.RequestSlot(w, req)
	return w
}

func (s *testServer) put(token string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("PUT", "/uploads/"+token, bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	req.SetPathValue("token", token)
	w := httptest.NewRecorder()
	s.uploads.Upload(w, req)
	return w
}

func (s *testServer) uploadImage(t *testing.T, headers map[string]string, code string) models.Image {
	t.Helper()
	w := s.requestSlot(headers, code)
	if w.Code != http.StatusCreated {
		t.Fatalf("request slot failed: %d - %s", w.Code, w.Body.String())
	}
	var slot models.UploadSlot
	testutil.AssertJSON(t, w, &slot)

	w = s.put(slot.Token, testutil.TestPNG(t), "image/png")
	if w.Code != http.StatusCreated {
		t.Fatalf("upload failed: %d - %s", w.Code, w.Body.String())
	}
	var img models.Image
	testutil.AssertJSON(t, w, &img)
	return img
}

func (s *testServer) vote(method string, headers map[string]string, code, imageID string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest(method, "/sessions/"+code+"/images/"+imageID+"/vote", nil, headers)
	req.SetPathValue("code", code)
	req.SetPathValue("imageID", imageID)
	w := httptest.NewRecorder()
	if method == "DELETE" {
		s.votes.Retract(w, req)
	} else {
		s.votes.Cast(w, req)
	}
	return w
}

func (s *testServer) getResults(t *testing.T, headers map[string]string, code string) models.ResultsResponse {
	t.Helper()
	req := testutil.MakeRequest("GET", "/sessions/"+code+"/results", nil, headers)
	req.SetPathValue("code", code)
	w := httptest.NewRecorder()
	s.results.GetResults(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get results failed: %d - %s", w.Code, w.Body.String())
	}
	var resp models.ResultsResponse
	testutil.AssertJSON(t, w, &resp)
	return resp
}

func (s *testServer) toggle(phase string, headers map[string]string, code string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("POST", "/sessions/"+code+"/"+phase+"/toggle", nil, headers)
	req.SetPathValue("code", code)
	w := httptest.NewRecorder()
	if phase == models.PhaseUploads {
		s.sessions.ToggleUploads(w, req)
	} else {
		s.sessions.ToggleVoting(w, req)
	}
	return w
}

// errorCode decodes the machine-readable code from an error response
func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorResponse
	testutil.AssertJSON(t, w, &resp)
	return resp.Code
}
