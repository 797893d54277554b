package core

import (
	"testing"
)

func TestRegistryGet(t *testing.T) {
	def, ok := Get(testVoteFormat)
	if !ok {
		t.Fatalf("%s not registered", testVoteFormat)
	}
	if def.Info.Target != TargetVote || def.ParseVote == nil {
		t.Errorf("unexpected definition: %+v", def.Info)
	}
	if _, ok := Get("nope"); ok {
		t.Error("Get(nope) should fail")
	}
}

func TestRegistryByTarget(t *testing.T) {
	for _, target := range []Target{TargetVote, TargetElection, TargetParties} {
		defs := ByTarget(target)
		if len(defs) == 0 {
			t.Errorf("no formats for %s", target)
		}
		for i, def := range defs {
			if def.Info.Target != target {
				t.Errorf("%s listed under %s", def.Info.Key, target)
			}
			if i > 0 && defs[i-1].Info.Key >= def.Info.Key {
				t.Errorf("formats not sorted: %s before %s", defs[i-1].Info.Key, def.Info.Key)
			}
		}
	}
	if got := len(All()); got != FormatCount() {
		t.Errorf("All() = %d formats, FormatCount() = %d", got, FormatCount())
	}
}

func TestRegisterPanics(t *testing.T) {
	tests := []struct {
		name string
		def  FormatDefinition
	}{
		{
			name: "duplicate key",
			def: FormatDefinition{
				Info:      FormatInfo{Key: testVoteFormat, Target: TargetVote},
				ParseVote: parseTestVote,
			},
		},
		{
			name: "missing parser",
			def: FormatDefinition{
				Info:          FormatInfo{Key: "test_no_parser", Target: TargetVote},
				ParseElection: parseTestElection,
			},
		},
		{
			name: "duplicate role",
			def: FormatDefinition{
				Info: FormatInfo{
					Key:    "test_roles",
					Target: TargetVote,
					Files:  []FileSpec{{Role: "a"}, {Role: "a"}},
				},
				ParseVote: parseTestVote,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("Register did not panic")
				}
			}()
			Register(tt.def)
		})
	}
}
