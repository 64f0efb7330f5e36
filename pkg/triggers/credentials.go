package triggers

import "github.com/go-go-golems/registryctl/pkg/api"

const (
	CredentialSSHKey  = "SSH Public Key"
	CredentialWebhook = "Webhook Endpoint URL"

	AutoAddedKeyText    = "The following key has been automatically added to your source control repository."
	RequiresActionText  = "In order to use this trigger, the following first requires action:"
	GrantKeyAccessText  = "You must give the following public key read access to the git repository."
	SetWebhookText      = "You must set your repository to POST to the following URL to trigger a build."
	CustomGitDocsText   = "For more information, refer to the Custom Git Triggers documentation."
	ActivatedText       = "Trigger has been successfully activated"
	AutoDisableNoteText = "Please note: If the trigger continuously fails to build, it will be automatically disabled. It can be re-enabled from the build trigger list."
)

type CredentialLine struct {
	Name  string
	Value string
	// Instruction precedes the value when the user has to act on it.
	Instruction string
}

type CredentialsView struct {
	Intro  string
	Lines  []CredentialLine
	Footer string
}

// Credentials builds the credentials panel for a trigger. Hosted services get
// their deploy key installed for them; custom git needs both the key and the
// webhook set up by hand.
func Credentials(t api.Trigger) CredentialsView {
	key, hasKey := t.Credential(CredentialSSHKey)

	if t.Service != api.ServiceCustomGit {
		v := CredentialsView{Intro: AutoAddedKeyText}
		if hasKey {
			v.Lines = append(v.Lines, CredentialLine{Name: CredentialSSHKey, Value: key})
		}
		return v
	}

	v := CredentialsView{Intro: RequiresActionText, Footer: CustomGitDocsText}
	if hasKey {
		v.Lines = append(v.Lines, CredentialLine{Name: CredentialSSHKey, Value: key, Instruction: GrantKeyAccessText})
	}
	if hook, ok := t.Credential(CredentialWebhook); ok {
		v.Lines = append(v.Lines, CredentialLine{Name: CredentialWebhook, Value: hook, Instruction: SetWebhookText})
	}
	return v
}
