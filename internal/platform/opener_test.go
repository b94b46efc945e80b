package platform

import (
	"context"
	"testing"
)

func TestScheme(t *testing.T) {
	tests := map[string]string{
		"bank":                   "bank",
		"Bank:":                  "bank",
		"bank://":                "bank",
		"ginipay-bank://payment": "ginipay-bank",
		"":                       "",
	}
	for in, want := range tests {
		if got := Scheme(in); got != want {
			t.Errorf("Scheme(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStaticOpener(t *testing.T) {
	ctx := context.Background()
	o := NewStaticOpener("bank")

	if !o.CanOpen("bank://") {
		t.Fatal("installed scheme should resolve")
	}
	if o.CanOpen("other://") {
		t.Fatal("unknown scheme should not resolve")
	}
	ok, err := o.Open(ctx, "bank://payment?id=1")
	if err != nil || !ok {
		t.Fatalf("Open = %v, %v", ok, err)
	}

	o.SetDeclines(true)
	ok, err = o.Open(ctx, "bank://payment?id=2")
	if err != nil || ok {
		t.Fatalf("declining Open = %v, %v", ok, err)
	}

	o.Uninstall("bank")
	if o.CanOpen("bank://") {
		t.Fatal("uninstalled scheme should not resolve")
	}
	if got := o.Opened(); len(got) != 2 {
		t.Fatalf("Opened() = %v", got)
	}
}

func TestCommandOpenerSkipsUnresolved(t *testing.T) {
	o := NewCommandOpener("definitely-not-a-binary", nil, nil)
	ok, err := o.Open(context.Background(), "bank://payment?id=1")
	if err != nil || ok {
		t.Fatalf("Open = %v, %v; want declined without running the command", ok, err)
	}
}

func TestSetInstalledReplacesSchemes(t *testing.T) {
	o := NewStaticOpener("old")
	o.SetInstalled([]string{"new://", " "})
	if o.CanOpen("old://") {
		t.Error("old scheme still resolves")
	}
	if !o.CanOpen("new://payment") {
		t.Error("new scheme does not resolve")
	}

	var cmd URLOpener = NewCommandOpener("", nil, nil)
	if _, ok := cmd.(interface{ SetInstalled([]string) }); !ok {
		t.Error("CommandOpener should expose SetInstalled")
	}
}
