package v1

// ArchiveJob is a batch of archive builds described in YAML or JSON.
type ArchiveJob struct {
	Kind     string         `yaml:"kind" json:"kind" validate:"required,eq=ArchiveJob"`
	Metadata Metadata       `yaml:"metadata" json:"metadata"`
	Spec     ArchiveJobSpec `yaml:"spec" json:"spec"`
}

type Metadata struct {
	Name string `yaml:"name" json:"name" validate:"required"`
}

type ArchiveJobSpec struct {
	// Defaults apply to every archive that does not override them.
	Defaults *ArchiveDefaults `yaml:"defaults,omitempty" json:"defaults,omitempty"`

	Archives []ArchiveSpec `yaml:"archives" json:"archives" validate:"required,min=1,unique=ID,dive"`

	// Publish configures where finished archives are copied (default: nowhere).
	Publish *PublishSpec `yaml:"publish,omitempty" json:"publish,omitempty"`
}

type ArchiveDefaults struct {
	Format          string `yaml:"format,omitempty" json:"format,omitempty" validate:"omitempty,oneof=zip gz tar.gz 7z tar.zst tar.lz4"`
	KeepOriginal    *bool  `yaml:"keep_original,omitempty" json:"keep_original,omitempty"`
	AppendTimestamp *bool  `yaml:"append_timestamp,omitempty" json:"append_timestamp,omitempty"`
}

// ArchiveSpec is one source to archive.
type ArchiveSpec struct {
	ID string `yaml:"id" json:"id" validate:"required"`

	// Source is the file or directory to archive.
	Source string `yaml:"source" json:"source" template:"" validate:"required"`

	Format          string `yaml:"format,omitempty" json:"format,omitempty" validate:"omitempty,oneof=zip gz tar.gz 7z tar.zst tar.lz4"`
	KeepOriginal    *bool  `yaml:"keep_original,omitempty" json:"keep_original,omitempty"`
	AppendTimestamp *bool  `yaml:"append_timestamp,omitempty" json:"append_timestamp,omitempty"`
}

// PublishSpec configures the publish destination (one of the fields should be set).
type PublishSpec struct {
	Folder *FolderPublishSpec `yaml:"folder,omitempty" json:"folder,omitempty"`
	S3     *S3PublishSpec     `yaml:"s3,omitempty" json:"s3,omitempty"`
}

type FolderPublishSpec struct {
	Path string `yaml:"path" json:"path" template:"" validate:"required"`
}

type S3PublishSpec struct {
	Bucket         string         `yaml:"bucket" json:"bucket" template:"" validate:"required"`
	Prefix         *string        `yaml:"prefix,omitempty" json:"prefix,omitempty" template:""`
	Region         *string        `yaml:"region,omitempty" json:"region,omitempty" template:""`
	Endpoint       *string        `yaml:"endpoint,omitempty" json:"endpoint,omitempty" template:""`
	ForcePathStyle bool           `yaml:"force_path_style,omitempty" json:"force_path_style,omitempty"`
	Credentials    *S3Credentials `yaml:"credentials,omitempty" json:"credentials,omitempty"`

	// Metadata is attached to every uploaded object. Values are expanded.
	Metadata map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

type S3Credentials struct {
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id" template:"" validate:"required"`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key" template:"" validate:"required"`
}
