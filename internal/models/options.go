package models

// Places maps JRA racecourse codes to their names.
var Places = []Option{
	{Code: "01", Name: "札幌"},
	{Code: "02", Name: "函館"},
	{Code: "03", Name: "福島"},
	{Code: "04", Name: "新潟"},
	{Code: "05", Name: "東京"},
	{Code: "06", Name: "中山"},
	{Code: "07", Name: "中京"},
	{Code: "08", Name: "京都"},
	{Code: "09", Name: "阪神"},
	{Code: "10", Name: "小倉"},
}

// BetTypes maps bet type codes to their names.
var BetTypes = []Option{
	{Code: "1", Name: "単勝"},
	{Code: "2", Name: "複勝"},
	{Code: "3", Name: "枠連"},
	{Code: "5", Name: "馬連"},
	{Code: "6", Name: "馬単"},
	{Code: "7", Name: "ワイド"},
	{Code: "8", Name: "3連複"},
	{Code: "9", Name: "3連単"},
}

const (
	MinRace = 1
	MaxRace = 12
)

type Option struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// SubmitName tells the form to submit an option's name, which is what the
// parser stores for scanned tickets.
const SubmitName = "name"

// EntryOptions lists the choices offered by the manual entry form.
type EntryOptions struct {
	Places      []Option `json:"places"`
	Races       []int    `json:"races"`
	BetTypes    []Option `json:"bet_types"`
	SubmitField string   `json:"submit_field"`
}

func NewEntryOptions() EntryOptions {
	races := make([]int, 0, MaxRace)
	for i := MinRace; i <= MaxRace; i++ {
		races = append(races, i)
	}
	return EntryOptions{Places: Places, Races: races, BetTypes: BetTypes, SubmitField: SubmitName}
}

// PlaceName returns the racecourse name for a code, or the code itself.
func PlaceName(code string) string {
	for _, p := range Places {
		if p.Code == code {
			return p.Name
		}
	}
	return code
}

// BetTypeName returns the bet type name for a code, or the code itself.
func BetTypeName(code string) string {
	for _, b := range BetTypes {
		if b.Code == code {
			return b.Name
		}
	}
	return code
}
