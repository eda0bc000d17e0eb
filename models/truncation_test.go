package models

import (
	"math/rand"
	"strings"
	"testing"
)

func wordCount(s string) int { return len(strings.Fields(s)) }

func randomHistory(r *rand.Rand) []Message {
	roles := []Role{RoleSystem, RoleUser, RoleAssistant, RoleUser, RoleAssistant}
	n := r.Intn(12)
	msgs := make([]Message, n)
	for i := range msgs {
		words := make([]string, r.Intn(8))
		for j := range words {
			words[j] = "w"
		}
		// Index tag keeps every message distinguishable.
		msgs[i] = Message{Role: roles[r.Intn(len(roles))], Content: strings.Join(append(words, string(rune('a'+i))), " ")}
	}
	return msgs
}

// isSubsequence reports whether got appears in want in the same relative order.
func isSubsequence(got, want []Message) bool {
	j := 0
	for _, m := range want {
		if j < len(got) && got[j].Content == m.Content && got[j].Role == m.Role {
			j++
		}
	}
	return j == len(got)
}

func TestFillFromNewest_BudgetAndOrder(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		msgs := randomHistory(r)
		budget := r.Intn(40)
		got := FillFromNewest(msgs, budget, wordCount)

		if n := CountMessages(got, wordCount); n > budget {
			t.Fatalf("budget %d exceeded with %d tokens: %+v", budget, n, got)
		}
		if !isSubsequence(got, msgs) {
			t.Fatalf("order not preserved: %+v from %+v", got, msgs)
		}
		// Greedy fill keeps a contiguous suffix.
		if len(got) > 0 && got[len(got)-1].Content != msgs[len(msgs)-1].Content {
			t.Fatalf("newest message must be retained first: %+v", got)
		}
	}
}

func TestFillFromNewest_DropsOldSystemMessage(t *testing.T) {
	msgs := []Message{
		{Role: RoleSystem, Content: "s s s s"},
		{Role: RoleUser, Content: "u u"},
		{Role: RoleAssistant, Content: "a a"},
	}
	got := FillFromNewest(msgs, 4, wordCount)
	if len(got) != 2 || got[0].Role != RoleUser {
		t.Errorf("expected system message to be dropped, got %+v", got)
	}
}

func TestKeepRecent_OrderAndSystemRetention(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		msgs := randomHistory(r)
		got := KeepRecent(msgs, r.Intn(40), 5, wordCount)

		if !isSubsequence(got, msgs) {
			t.Fatalf("order not preserved: %+v from %+v", got, msgs)
		}
		systems := 0
		for _, m := range msgs {
			if m.Role == RoleSystem {
				systems++
			}
		}
		kept := 0
		for _, m := range got {
			if m.Role == RoleSystem {
				kept++
			}
		}
		if kept != systems {
			t.Fatalf("system messages dropped: kept %d of %d", kept, systems)
		}
		if len(got)-kept > 5 && len(got) != len(msgs) {
			t.Fatalf("more than 5 recent messages kept: %+v", got)
		}
	}
}

func TestKeepRecent_UnderBudgetUnchanged(t *testing.T) {
	msgs := []Message{{Role: RoleUser, Content: "a"}, {Role: RoleAssistant, Content: "b"}}
	got := KeepRecent(msgs, 10, 1, wordCount)
	if len(got) != 2 {
		t.Errorf("expected history under budget to be untouched, got %+v", got)
	}
}

func TestKeepRecent_MayOvershootBudget(t *testing.T) {
	msgs := []Message{
		{Role: RoleSystem, Content: "one two three four five six"},
		{Role: RoleUser, Content: "a b c"},
		{Role: RoleUser, Content: "d"},
	}
	got := KeepRecent(msgs, 2, 5, wordCount)
	if len(got) != 3 {
		t.Fatalf("expected count-bounded result to keep everything, got %+v", got)
	}
	if CountMessages(got, wordCount) <= 2 {
		t.Errorf("expected documented overshoot")
	}
}
