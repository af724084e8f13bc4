package telegram

// UI texts. The bot speaks Japanese like the app it belongs to.
const (
	startText = "お薬リマインダーのボットです。\n\n" +
		"アプリの設定画面に表示される連携コードをこのトークに送信すると、" +
		"服薬リマインダーと残薬通知が届くようになります。\n\n" +
		"「ヘルプ」でコマンド一覧を表示します。"

	linkedText = "アカウント連携完了\nアカウントの連携が完了しました！"

	unlinkedText = "連携解除完了\nアカウントの連携を解除しました。"

	notLinkedText = "アカウントが連携されていません。" +
		"アプリの設定画面から連携コードをコピーし、トーク画面に送信してください。"

	helpLinkedStatus   = "現在、アカウントは連携済みです。"
	helpUnlinkedStatus = "現在、アカウントは未連携です。連携コードを送信して連携してください。"

	helpCommands = "ご利用可能なコマンド一覧\n\n" +
		"1. アカウント連携\nアプリの設定画面で表示される連携コードを送信してください。\n\n" +
		"2. 連携解除\n「連携解除」と送信するとアカウント連携を解除します。\n\n" +
		"3. ヘルプ\nこのメッセージを表示します。"

	defaultReplyText = "メッセージありがとうございます。現在、個別の返信は行っておりません。"
)
