package model

type Location struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	ChineseName string `json:"chineseName" yaml:"chinese_name"`
}

type Teacher struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Color   string `json:"color"`
}

type SessionKind struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Chinese string `json:"chinese"`
}

const (
	LocationYuenLong = "yl"
	LocationMongKok  = "mk"
)

var Locations = []Location{
	{ID: LocationYuenLong, Name: "Yuen Long", ChineseName: "元朗"},
	{ID: LocationMongKok, Name: "Mong Kok", ChineseName: "旺角"},
}

var Teachers = []Teacher{
	{ID: "t1", Name: "dsechinese.man", Subject: "中文", Color: "rose"},
	{ID: "t2", Name: "englishtutor.dse", Subject: "英文", Color: "blue"},
	{ID: "t3", Name: "atlas.englishdse", Subject: "英文", Color: "indigo"},
	{ID: "t4", Name: "dsephysics.whale", Subject: "物理", Color: "cyan"},
	{ID: "t5", Name: "dselion.math", Subject: "數學", Color: "amber"},
	{ID: "t6", Name: "deerdse.econ", Subject: "經濟", Color: "orange"},
	{ID: "t7", Name: "bondingeducation", Subject: "化學", Color: "fuchsia"},
	{ID: "t8", Name: "dsebio.penguin", Subject: "生物", Color: "emerald"},
}

var SessionKinds = []SessionKind{
	{ID: "live", Label: "Live Class", Chinese: "實體課"},
	{ID: "video", Label: "Video Recording", Chinese: "錄像課程"},
	{ID: "tutorial", Label: "Tutorial", Chinese: "小組輔導"},
	{ID: "meeting", Label: "Meeting", Chinese: "內部會議"},
}

func FindLocation(id string) (Location, bool) {
	for _, l := range Locations {
		if l.ID == id {
			return l, true
		}
	}
	return Location{}, false
}

func FindTeacher(id string) (Teacher, bool) {
	for _, t := range Teachers {
		if t.ID == id {
			return t, true
		}
	}
	return Teacher{}, false
}

// FindSessionKind matches on the English label, which is what a booking
// stores as its title.
func FindSessionKind(label string) (SessionKind, bool) {
	for _, k := range SessionKinds {
		if k.Label == label {
			return k, true
		}
	}
	return SessionKind{}, false
}

// ShortName is the handle before the first dot, as shown on tutor chips.
func (t Teacher) ShortName() string {
	for i := 0; i < len(t.Name); i++ {
		if t.Name[i] == '.' {
			return t.Name[:i]
		}
	}
	return t.Name
}
