// Package main provides a command-line client for testing the server.
package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
)

var (
	app    = kingpin.New("jamscli", "DailyJams client for testing")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	userID = app.Flag("user", "User profile ID").Default("1").Int64()

	// recommend command
	recommendCmd   = app.Command("recommend", "Request recommendations")
	recommendMood  = recommendCmd.Flag("mood", "Current mood").String()
	recommendTempo = recommendCmd.Flag("tempo", "Tempo 0-100").Default("50").Int()
	recommendGenre = recommendCmd.Flag("genre", "Genre (repeatable)").Strings()
	recommendLevel = recommendCmd.Flag("level", "Discovery level 1-5").Default("3").Int()
	recommendNew   = recommendCmd.Flag("discover-new", "Never repeat anything rated before").Bool()
	recommendTrend = recommendCmd.Flag("trending", "Bias toward trending artists").Bool()

	// feedback command
	feedbackCmd  = app.Command("feedback", "Rate a suggestion")
	feedbackID   = feedbackCmd.Arg("suggestion-id", "Suggestion ID").Required().Int64()
	feedbackType = feedbackCmd.Arg("type", "positive, negative, skipped or save_later").Required().String()

	// history command
	historyCmd = app.Command("history", "Show suggestion history")

	// sources command
	sourcesCmd = app.Command("sources", "List discovery sources")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	switch command {
	case recommendCmd.FullCommand():
		recommend()
	case feedbackCmd.FullCommand():
		feedback()
	case historyCmd.FullCommand():
		history()
	case sourcesCmd.FullCommand():
		sources()
	}
}

func recommend() {
	body := map[string]any{
		"user_id": *userID,
		"preferences": map[string]any{
			"mood":            *recommendMood,
			"tempo":           *recommendTempo,
			"genres":          *recommendGenre,
			"discovery_level": *recommendLevel,
			"discover_new":    *recommendNew,
			"trending_now":    *recommendTrend,
		},
	}

	var resp struct {
		Suggestions []struct {
			ID          int64  `json:"id"`
			BandName    string `json:"band_name"`
			Genre       string `json:"genre"`
			Description string `json:"description"`
			MatchReason string `json:"match_reason"`
			InPlaylist  bool   `json:"in_playlist"`
		} `json:"suggestions"`
	}
	post("/api/recommend", body, &resp)

	for _, s := range resp.Suggestions {
		marker := ""
		if s.InPlaylist {
			marker = " [in playlist]"
		}
		fmt.Printf("#%d %s (%s)%s\n", s.ID, s.BandName, s.Genre, marker)
		fmt.Printf("   %s\n", s.Description)
		fmt.Printf("   why: %s\n", s.MatchReason)
	}
}

func feedback() {
	body := map[string]any{
		"user_id":       *userID,
		"suggestion_id": *feedbackID,
		"feedback_type": *feedbackType,
	}
	var resp map[string]string
	post("/api/feedback", body, &resp)
	fmt.Printf("Feedback %s for suggestion %d\n", resp["status"], *feedbackID)
}

func history() {
	var resp struct {
		History []struct {
			SuggestionID int64  `json:"suggestion_id"`
			BandName     string `json:"band_name"`
			Genre        string `json:"genre"`
			FeedbackType string `json:"feedback_type"`
		} `json:"history"`
	}
	get(fmt.Sprintf("/api/history?user_id=%d", *userID), &resp)

	for _, e := range resp.History {
		verdict := e.FeedbackType
		if verdict == "" {
			verdict = "unrated"
		}
		fmt.Printf("#%d %-30s %-15s %s\n", e.SuggestionID, e.BandName, e.Genre, verdict)
	}
}

func sources() {
	var resp struct {
		Sources []struct {
			ID      int64  `json:"id"`
			Name    string `json:"name"`
			Enabled bool   `json:"enabled"`
		} `json:"sources"`
	}
	get(fmt.Sprintf("/api/sources/all?user_id=%d", *userID), &resp)

	for _, s := range resp.Sources {
		state := "off"
		if s.Enabled {
			state = "on "
		}
		fmt.Printf("[%s] #%d %s\n", state, s.ID, s.Name)
	}
}

func get(path string, out any) {
	resp, err := http.Get(*server + path)
	if err != nil {
		fail(err)
	}
	decode(resp, out)
}

func post(path string, body, out any) {
	payload, err := json.Marshal(body)
	if err != nil {
		fail(err)
	}
	resp, err := http.Post(*server+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		fail(err)
	}
	decode(resp, out)
}

func decode(resp *http.Response, out any) {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		fmt.Printf("Error (%d): %s\n", resp.StatusCode, strings.TrimSpace(string(raw)))
		os.Exit(1)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Printf("Error: %v\n", err)
	os.Exit(1)
}
