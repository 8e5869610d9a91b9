package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  Camión  ", "camion"},
		{"¿Qué productos tienen STOCK bajo?", "que productos tienen stock bajo"},
		{"Pantalón Niño", "pantalon nino"},
		{"rotación", "rotacion"},
		{"?", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"", "Árbol", "¿Cuánto cuesta la CAMISA?", " ¿ ? ", "Ñandú Über", "stock bajo con buena rotación",
		"İstanbul", "ﬁne", "Crème brûlée?",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestStripPlural(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"camisas", "camisa"},
		{"pantalones", "pantalon"},
		{"zapato", "zapato"},
		{"mes", "m"},
		{"s", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripPlural(tt.in); got != tt.want {
			t.Errorf("StripPlural(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWords(t *testing.T) {
	got := Words("precio, de la camisa!  azul")
	want := []string{"precio", "de", "la", "camisa", "azul"}
	if len(got) != len(want) {
		t.Fatalf("Words() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Words()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
