package db

type Launch struct {
	LaunchID    string `gorm:"column:launch_id;primaryKey"`
	ProjectName string `gorm:"column:project_name;not null;default:''"`
	ScriptPath  string `gorm:"column:script_path;not null;default:''"`
	Status      string `gorm:"column:status;not null;default:''"`
	ErrorKind   string `gorm:"column:error_kind;not null;default:''"`
	Message     string `gorm:"column:message;not null;default:''"`
	ContentSize int    `gorm:"column:content_size;not null;default:0"`
	CreatedAt   int64  `gorm:"column:created_at;not null;default:0"`
}

func (Launch) TableName() string { return "launches" }
