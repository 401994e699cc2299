/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package source

import (
	"context"
	"errors"
	"testing"
)

type fakeResolver struct {
	url     string
	isTrial bool
	err     error
}

func (f *fakeResolver) ResolveURL(ctx context.Context, songID string) (string, bool, error) {
	return f.url, f.isTrial, f.err
}

func (f *fakeResolver) IsTrialURL(url string) bool {
	return url == "trial-url"
}

func TestChainedPrefersPrimaryWhenNotTrial(t *testing.T) {
	c := &Chained{
		Primary:   &fakeResolver{url: "final-url"},
		Secondary: &fakeResolver{url: "secondary-url"},
	}
	url, isTrial, err := c.ResolveURL(context.Background(), "song-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "final-url" || isTrial {
		t.Fatalf("url=%q isTrial=%v, want final-url/false", url, isTrial)
	}
}

func TestChainedFallsBackToSecondaryOnTrial(t *testing.T) {
	c := &Chained{
		Primary:   &fakeResolver{url: "trial-url", isTrial: true},
		Secondary: &fakeResolver{url: "secondary-url"},
	}
	url, _, err := c.ResolveURL(context.Background(), "song-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "secondary-url" {
		t.Fatalf("url = %q, want secondary-url", url)
	}
}

func TestChainedKeepsPrimaryTrialURLWhenSecondaryFails(t *testing.T) {
	c := &Chained{
		Primary:   &fakeResolver{url: "trial-url", isTrial: true},
		Secondary: &fakeResolver{url: "", err: errors.New("secondary down")},
	}
	url, isTrial, err := c.ResolveURL(context.Background(), "song-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "trial-url" || !isTrial {
		t.Fatalf("url=%q isTrial=%v, want trial-url/true", url, isTrial)
	}
}

func TestChainedPropagatesPrimaryError(t *testing.T) {
	wantErr := errors.New("primary down")
	c := &Chained{Primary: &fakeResolver{err: wantErr}}
	_, _, err := c.ResolveURL(context.Background(), "song-1")
	if err != wantErr {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestChainedIsTrialURLDelegatesToPrimary(t *testing.T) {
	c := &Chained{Primary: &fakeResolver{}}
	if !c.IsTrialURL("trial-url") {
		t.Fatal("expected IsTrialURL to delegate to primary")
	}
	if c.IsTrialURL("other-url") {
		t.Fatal("expected false for non-trial url")
	}
}
