package main

import "testing"

func TestHealthDefaultURLMatchesServerPort(t *testing.T) {
	flag := healthCmd().Flags().Lookup("url")
	if flag == nil {
		t.Fatal("health command should define a --url flag")
	}
	if flag.DefValue != "http://localhost:8080" {
		t.Errorf("expected default http://localhost:8080, got %q", flag.DefValue)
	}
}
