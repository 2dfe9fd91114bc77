package riot

type leagueList struct {
	LeagueID string       `json:"leagueId"`
	Tier     string       `json:"tier"`
	Queue    string       `json:"queue"`
	Name     string       `json:"name"`
	Entries  []leagueItem `json:"entries"`
}

// leagueItem covers both apex list items and paged league entries.
type leagueItem struct {
	LeagueID     string `json:"leagueId"`
	PUUID        string `json:"puuid"`
	SummonerID   string `json:"summonerId"`
	Tier         string `json:"tier"`
	Rank         string `json:"rank"`
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	Veteran      bool   `json:"veteran"`
	Inactive     bool   `json:"inactive"`
	FreshBlood   bool   `json:"freshBlood"`
	HotStreak    bool   `json:"hotStreak"`
}

type accountDTO struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

type summonerDTO struct {
	PUUID         string `json:"puuid"`
	ProfileIconID int    `json:"profileIconId"`
	SummonerLevel int64  `json:"summonerLevel"`
}
