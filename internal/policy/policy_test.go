package policy

import (
	"errors"
	"sync"
	"testing"

	"vkeyboard/internal/keys"
)

const (
	keyA keys.Code = 0x00
	keyB keys.Code = 0x0B
	keyD keys.Code = 0x02
	keyE keys.Code = 0x24
	keyZ keys.Code = 0x06
)

func testPolicy() *Policy {
	return NewBuilder().
		Allow(keyA, keys.Command, keys.Shift, keys.Alternate, keys.Control).
		Allow(keyB, keys.Control).
		Allow(keyE).
		AllowAny(keyZ).
		Build()
}

func TestAuthorize(t *testing.T) {
	p := testPolicy()

	tests := []struct {
		name    string
		code    keys.Code
		mod     keys.Modifier
		wantErr error
	}{
		{"a with command", keyA, keys.Command, nil},
		{"a with option", keyA, keys.Alternate, nil},
		{"a without modifier", keyA, keys.NoModifier, nil},
		{"b with control", keyB, keys.Control, nil},
		{"b with shift", keyB, keys.Shift, ErrModifierNotAllowed},
		{"b without modifier", keyB, keys.NoModifier, nil},
		{"d not configured", keyD, keys.NoModifier, ErrKeyNotAllowed},
		{"d with shift", keyD, keys.Shift, ErrKeyNotAllowed},
		{"enter with empty list", keyE, keys.NoModifier, nil},
		{"enter with empty list and shift", keyE, keys.Shift, ErrModifierNotAllowed},
		{"unrestricted z with command", keyZ, keys.Command, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Authorize(tt.code, tt.mod)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuilderMergesRepeatedEntries(t *testing.T) {
	p := NewBuilder().
		Allow(keyB, keys.Control).
		Allow(keyB, keys.Shift).
		Build()

	for _, m := range []keys.Modifier{keys.Control, keys.Shift} {
		if err := p.Authorize(keyB, m); err != nil {
			t.Errorf("Authorize(b, %v) = %v", m, err)
		}
	}
	if err := p.Authorize(keyB, keys.Command); !errors.Is(err, ErrModifierNotAllowed) {
		t.Errorf("Authorize(b, command) = %v", err)
	}
}

func TestAllowAnyWins(t *testing.T) {
	p := NewBuilder().
		Allow(keyB, keys.Control).
		AllowAny(keyB).
		Allow(keyB, keys.Shift).
		Build()

	if err := p.Authorize(keyB, keys.Command); err != nil {
		t.Errorf("unrestricted key rejected command: %v", err)
	}
	if _, restricted := p.AllowedModifiers(keyB); restricted {
		t.Error("expected key b to be unrestricted")
	}
}

func TestKeysAndModifiers(t *testing.T) {
	p := testPolicy()

	got := p.Keys()
	want := []keys.Code{keyA, keyZ, keyB, keyE}
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Keys() = %v, want %v", got, want)
		}
	}

	mods, restricted := p.AllowedModifiers(keyB)
	if !restricted || len(mods) != 1 || mods[0] != keys.Control {
		t.Errorf("AllowedModifiers(b) = %v, %v", mods, restricted)
	}

	mods, restricted = p.AllowedModifiers(keyE)
	if !restricted || len(mods) != 0 {
		t.Errorf("AllowedModifiers(enter) = %v, %v", mods, restricted)
	}
}

func TestAuthorizeConcurrent(t *testing.T) {
	p := testPolicy()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if err := p.Authorize(keyA, keys.Command); err != nil {
					t.Errorf("concurrent Authorize failed: %v", err)
					return
				}
				_ = p.Authorize(keyD, keys.NoModifier)
			}
		}()
	}
	wg.Wait()
}
