package txid

import "testing"

func TestGenerateWriteIdRoundTrip(t *testing.T) {
	for c := int64(1); c < 10_000; c += 37 {
		w := GenerateWriteId(c)
		if !IsWriteTx(w) {
			t.Fatalf("GenerateWriteId(%d) = %d, want write id", c, w)
		}
		if got := WriteTxCounter(w); got != c {
			t.Fatalf("WriteTxCounter(GenerateWriteId(%d)) = %d, want %d", c, got, c)
		}
	}
}

func TestIsReadWriteTx(t *testing.T) {
	cases := []struct {
		id        int64
		wantRead  bool
		wantWrite bool
	}{
		{0, true, false},
		{1, true, false},
		{NoTx, false, true},
		{GenerateWriteId(1), false, true},
	}
	for _, c := range cases {
		if got := IsReadTx(c.id); got != c.wantRead {
			t.Errorf("IsReadTx(%d) = %v, want %v", c.id, got, c.wantRead)
		}
		if got := IsWriteTx(c.id); got != c.wantWrite {
			t.Errorf("IsWriteTx(%d) = %v, want %v", c.id, got, c.wantWrite)
		}
	}
}

func TestGenerateTxIdPreservesCounter(t *testing.T) {
	w := GenerateWriteId(42)
	for _, phase := range []Phase{PhaseValidating, PhaseRectifying, PhaseDistributing} {
		tagged := GenerateTxId(w, phase)
		if !IsWriteTx(tagged) {
			t.Fatalf("GenerateTxId(%d, %s) = %d, want write id", w, phase, tagged)
		}
		if got := WriteTxCounter(tagged); got != 42 {
			t.Errorf("WriteTxCounter(GenerateTxId(w, %s)) = %d, want 42", phase, got)
		}
	}
}

func TestGenerateTxIdDistinctPerPhase(t *testing.T) {
	w := GenerateWriteId(7)
	seen := map[int64]Phase{}
	for _, phase := range []Phase{PhaseValidating, PhaseRectifying, PhaseDistributing} {
		tagged := GenerateTxId(w, phase)
		if other, ok := seen[tagged]; ok {
			t.Fatalf("phases %s and %s both produced id %d", other, phase, tagged)
		}
		seen[tagged] = phase
	}
}

func TestGenerateTxIdDistinctFromBaseWriteId(t *testing.T) {
	w := GenerateWriteId(7)
	for _, phase := range []Phase{PhaseValidating, PhaseRectifying, PhaseDistributing} {
		if tagged := GenerateTxId(w, phase); tagged == w {
			t.Fatalf("GenerateTxId(w, %s) = %d, collides with base write id %d", phase, tagged, w)
		}
	}
}

func TestGenerateTxIdRejectsOpenPhase(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for PhaseOpen")
		}
	}()
	GenerateTxId(GenerateWriteId(1), PhaseOpen)
}

func TestGenerateWriteIdRejectsNonPositiveCounter(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for c < 1")
		}
	}()
	GenerateWriteId(0)
}
