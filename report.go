// Game summary and the compact share string.
//
// The encoded form is gzipped JSON in URL-safe base64, suitable for QR
// payloads and share links, and round-trips losslessly.

package main

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

type PlayerSummary struct {
	Name             string        `json:"name"`
	MBTI             string        `json:"mbti"`
	IsBot            bool          `json:"is_bot,omitempty"`
	TrustScore       int           `json:"trust_score"`
	InsightScore     int           `json:"insight_score"`
	ExpressionScore  int           `json:"expression_score"`
	TotalRatingGiven int           `json:"total_rating_given"`
	Stats            BehaviorStats `json:"stats"`
}

type GameSummary struct {
	Mode      GameMode        `json:"mode"`
	StartedAt time.Time       `json:"started_at"`
	Turns     int             `json:"turns"`
	Players   []PlayerSummary `json:"players"`
}

func (g *Game) Summary() GameSummary {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := GameSummary{
		Mode:      g.mode,
		StartedAt: g.startedAt,
		Turns:     g.turn,
	}
	for _, p := range g.players {
		s.Players = append(s.Players, PlayerSummary{
			Name:             p.Name,
			MBTI:             p.MBTI,
			IsBot:            p.IsBot,
			TrustScore:       p.TrustScore,
			InsightScore:     p.InsightScore,
			ExpressionScore:  p.ExpressionScore,
			TotalRatingGiven: p.TotalRatingGiven,
			Stats:            p.Stats.clone(),
		})
	}
	return s
}

func EncodeSummary(s GameSummary) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

func DecodeSummary(enc string) (GameSummary, error) {
	var s GameSummary

	raw, err := base64.RawURLEncoding.DecodeString(enc)
	if err != nil {
		return s, fmt.Errorf("malformed share string: %w", err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return s, fmt.Errorf("malformed share string: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return s, fmt.Errorf("malformed share string: %w", err)
	}

	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("malformed share string: %w", err)
	}
	return s, nil
}
