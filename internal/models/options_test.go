package models

import "testing"

func TestTicketNamed(t *testing.T) {
	cases := []struct {
		in, want ParsedTicket
	}{
		{ParsedTicket{PlaceCode: "05", BetType: "1"}, ParsedTicket{PlaceCode: "東京", BetType: "単勝"}},
		{ParsedTicket{PlaceCode: "10", BetType: "9"}, ParsedTicket{PlaceCode: "小倉", BetType: "3連単"}},
		{ParsedTicket{PlaceCode: "阪神", BetType: "馬連"}, ParsedTicket{PlaceCode: "阪神", BetType: "馬連"}},
	}
	for _, tc := range cases {
		if got := tc.in.Named(); got != tc.want {
			t.Errorf("%+v.Named() = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestNewEntryOptions(t *testing.T) {
	o := NewEntryOptions()
	if len(o.Places) != 10 || len(o.BetTypes) != 8 {
		t.Errorf("places %d, bet types %d", len(o.Places), len(o.BetTypes))
	}
	if o.Races[0] != MinRace || o.Races[len(o.Races)-1] != MaxRace {
		t.Errorf("races = %v", o.Races)
	}
	if o.SubmitField != SubmitName {
		t.Errorf("submit field = %q", o.SubmitField)
	}
}
