package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/config"
)

const sheetJSON = `{
  "id": 111,
  "name": "Prices",
  "columns": [
    {"id": 1, "index": 0, "title": "Unit Code"},
    {"id": 2, "index": 1, "title": "Departure"},
    {"id": 3, "index": 2, "title": "Deep"}
  ],
  "rows": [
    {"id": 10, "rowNumber": 1, "cells": [
      {"columnId": 1, "value": "U100", "displayValue": "U100"},
      {"columnId": 2, "value": 150, "displayValue": "$150.00"},
      {"columnId": 3, "value": 300.5}
    ]},
    {"id": 11, "rowNumber": 2, "cells": [
      {"columnId": 1, "value": "U200"},
      {"columnId": 2},
      {"columnId": 99, "value": "stray"}
    ]}
  ]
}`

func TestNewSmartsheetService(t *testing.T) {
	cfg := &config.SmartsheetConfig{APIURL: "https://api.smartsheet.test", AccessToken: "token"}

	svc := NewSmartsheetService(cfg)
	if svc == nil {
		t.Fatal("Expected non-nil service")
	}
	if svc.httpClient == nil {
		t.Error("Expected httpClient to be set")
	}
	if svc.limiter == nil {
		t.Error("Expected limiter to be set")
	}
}

func TestSmartsheetServiceFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/sheets/111" {
			t.Errorf("Expected /sheets/111, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Error("Expected Authorization header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sheetJSON))
	}))
	defer server.Close()

	svc := NewSmartsheetService(&config.SmartsheetConfig{
		APIURL:            server.URL,
		AccessToken:       "test-token",
		RequestsPerMinute: 600,
	})

	table, err := svc.Fetch(context.Background(), "111")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if strings.Join(table.Header, ",") != "Unit Code,Departure,Deep" {
		t.Errorf("Unexpected header %v", table.Header)
	}
	if table.Len() != 2 {
		t.Fatalf("Expected 2 rows, got %d", table.Len())
	}
	tests := []struct {
		row  int
		col  string
		want string
	}{
		{0, "Unit Code", "U100"},
		{0, "Departure", "$150.00"},
		{0, "Deep", "300.5"},
		{1, "Unit Code", "U200"},
		{1, "Departure", ""},
	}
	for _, tt := range tests {
		if got := table.Value(tt.row, tt.col); got != tt.want {
			t.Errorf("Row %d %s: expected %q, got %q", tt.row, tt.col, tt.want, got)
		}
	}
}

func TestSmartsheetServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errorCode": 1006, "message": "Not Found", "refId": "abc"}`))
	}))
	defer server.Close()

	svc := NewSmartsheetService(&config.SmartsheetConfig{APIURL: server.URL})

	_, err := svc.Fetch(context.Background(), "404")
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "Not Found") || !strings.Contains(err.Error(), "1006") {
		t.Errorf("Expected API message in error, got %v", err)
	}
}

func TestSmartsheetServiceInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	svc := NewSmartsheetService(&config.SmartsheetConfig{APIURL: server.URL})
	if _, err := svc.Fetch(context.Background(), "1"); err == nil {
		t.Error("Expected parse error")
	}
}

func TestSmartsheetServiceCancelledContext(t *testing.T) {
	svc := NewSmartsheetService(&config.SmartsheetConfig{APIURL: "http://127.0.0.1:1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Fetch(ctx, "1"); err == nil {
		t.Error("Expected error with cancelled context")
	}
}

func TestSmartsheetServiceVerifyCallback(t *testing.T) {
	body := []byte(`{"webhookId":1,"scopeObjectId":111}`)
	mac := hmac.New(sha256.New, []byte("shh"))
	mac.Write(body)
	valid := hex.EncodeToString(mac.Sum(nil))

	tests := []struct {
		name      string
		secret    string
		signature string
		want      bool
	}{
		{"valid signature", "shh", valid, true},
		{"wrong signature", "shh", "deadbeef", false},
		{"missing signature", "shh", "", false},
		{"no secret configured", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewSmartsheetService(&config.SmartsheetConfig{WebhookSecret: tt.secret})
			if got := svc.VerifyCallback(tt.signature, body); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}
