package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"

	"github.com/gokatarajesh/trivia-quiz/internal/quiz"
	"github.com/gokatarajesh/trivia-quiz/internal/session"
)

const quitKey = "q"

var errQuit = errors.New("quit")

// Player is the part of a session controller the terminal needs.
type Player interface {
	AcquireToken(ctx context.Context) (string, error)
	RetryToken(ctx context.Context) error
	Submit(form session.Form) (quiz.Selection, error)
	Select(answer string) error
	SubmitAnswer() error
	Next() error
	PlayAgain() error
	Retry() error
	View() session.View
	Subscribe(fn func(session.View)) func()
}

type app struct {
	player  Player
	reader  *bufio.Reader
	out     io.Writer
	updates chan struct{}
}

// Run plays the quiz in the terminal until the player quits or input ends.
func Run(ctx context.Context, player Player, in io.Reader, out io.Writer) error {
	a := &app{
		player:  player,
		reader:  bufio.NewReader(in),
		out:     out,
		updates: make(chan struct{}, 1),
	}
	unsubscribe := player.Subscribe(func(session.View) {
		select {
		case a.updates <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	err := a.run(ctx)
	if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
		fmt.Fprintln(out, "\nBye!")
		return nil
	}
	return err
}

func (a *app) run(ctx context.Context) error {
	fmt.Fprintln(a.out, "Loading API token...")
	if err := a.acquireToken(ctx); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "\nWelcome to the Trivia Quiz!")
	if err := a.intake(); err != nil {
		return err
	}

	for {
		v, err := a.settled(ctx)
		if err != nil {
			return err
		}

		switch v.Phase {
		case quiz.PhaseAnswering:
			err = a.answer(v)
		case quiz.PhaseShowingResult:
			a.printResult(v)
			if err = a.pause("Press Enter for the next question"); err == nil {
				err = a.player.Next()
			}
		case quiz.PhaseGameOver:
			a.printGameOver(v)
			var yes bool
			if yes, err = a.confirm("Play again?"); err == nil {
				if !yes {
					return errQuit
				}
				err = a.player.PlayAgain()
			}
		case quiz.PhaseError:
			fmt.Fprintf(a.out, "\n%s\n", v.Error)
			if err = a.pause("Press Enter to retry"); err == nil {
				err = a.player.Retry()
			}
		}
		if err != nil {
			return err
		}
	}
}

func (a *app) acquireToken(ctx context.Context) error {
	_, err := a.player.AcquireToken(ctx)
	for err != nil {
		fmt.Fprintf(a.out, "Could not get an API token: %v\n", err)
		yes, promptErr := a.confirm("Retry?")
		if promptErr != nil {
			return promptErr
		}
		if !yes {
			return errQuit
		}
		err = a.player.RetryToken(ctx)
	}
	return nil
}

func (a *app) intake() error {
	for {
		name, err := a.prompt("First Name: ")
		if err != nil {
			return err
		}

		for i, c := range quiz.Categories {
			fmt.Fprintf(a.out, "  %d) %s\n", i+1, c.Name)
		}
		rawCategory, err := a.prompt("Category: ")
		if err != nil {
			return err
		}

		for i, d := range quiz.Difficulties {
			fmt.Fprintf(a.out, "  %d) %s\n", i+1, d)
		}
		rawDifficulty, err := a.prompt("Difficulty: ")
		if err != nil {
			return err
		}

		_, err = a.player.Submit(session.Form{
			FirstName:  name,
			Category:   categoryValue(rawCategory),
			Difficulty: difficultyValue(rawDifficulty),
		})
		var vErr *quiz.ValidationError
		if errors.As(err, &vErr) {
			fmt.Fprintf(a.out, "%s\n\n", vErr.Message)
			continue
		}
		return err
	}
}

// categoryValue accepts a menu number or a category id.
func categoryValue(raw string) string {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return ""
	}
	if n >= 1 && n <= len(quiz.Categories) {
		return strconv.Itoa(quiz.Categories[n-1].ID)
	}
	if _, ok := quiz.LookupCategory(n); ok {
		return raw
	}
	return ""
}

// difficultyValue accepts a menu number or a difficulty name.
func difficultyValue(raw string) string {
	if n, err := strconv.Atoi(raw); err == nil {
		if n >= 1 && n <= len(quiz.Difficulties) {
			return string(quiz.Difficulties[n-1])
		}
		return ""
	}
	if d, ok := quiz.ParseDifficulty(strings.ToLower(raw)); ok {
		return string(d)
	}
	return ""
}

// settled waits until the quiz leaves the loading phase.
func (a *app) settled(ctx context.Context) (quiz.View, error) {
	announced := false
	for {
		v := a.player.View()
		if v.Quiz != nil && v.Quiz.Phase != quiz.PhaseLoading {
			return *v.Quiz, nil
		}
		if !announced {
			fmt.Fprintln(a.out, "\nLoading...")
			announced = true
		}
		select {
		case <-ctx.Done():
			return quiz.View{}, ctx.Err()
		case <-a.updates:
		}
	}
}

func (a *app) answer(v quiz.View) error {
	fmt.Fprintf(a.out, "\n%s\n\n", html.UnescapeString(v.Question))
	for i, c := range v.Choices {
		fmt.Fprintf(a.out, "%c. %s\n", 'A'+i, html.UnescapeString(c))
	}
	if v.Validation != "" {
		fmt.Fprintln(a.out, v.Validation)
	}

	maxLetter := byte('A' + len(v.Choices) - 1)
	for {
		line, err := a.prompt("\nYour answer: ")
		if err != nil {
			return err
		}
		if line == "" {
			// nothing selected; the view carries the validation message
			var vErr *quiz.ValidationError
			if err := a.player.SubmitAnswer(); err != nil && !errors.As(err, &vErr) {
				return err
			}
			return nil
		}
		letter := strings.ToUpper(line)
		if len(letter) == 1 && letter[0] >= 'A' && letter[0] <= maxLetter {
			if err := a.player.Select(v.Choices[letter[0]-'A']); err != nil {
				return err
			}
			return a.player.SubmitAnswer()
		}
		fmt.Fprintf(a.out, "Invalid input. Please enter a letter A-%c.\n", maxLetter)
	}
}

func (a *app) printResult(v quiz.View) {
	if v.Result == nil {
		return
	}
	if v.Result.Correct {
		fmt.Fprintf(a.out, "\n%s, you got it right!\n", v.Name)
	} else {
		fmt.Fprintf(a.out, "\n%s, you got it wrong.\n", v.Name)
		fmt.Fprintf(a.out, "Correct answer: %s\n", html.UnescapeString(v.Result.CorrectAnswer))
	}
	fmt.Fprintf(a.out, "Wrong answers: %d/%d\n", v.WrongCount, v.MaxWrong)
}

func (a *app) printGameOver(v quiz.View) {
	if v.Result != nil && !v.Result.Correct {
		fmt.Fprintf(a.out, "\nCorrect answer: %s\n", html.UnescapeString(v.Result.CorrectAnswer))
	}
	fmt.Fprintf(a.out, "\n%s, game over! You got %d wrong answers.\n", v.Name, v.WrongCount)
}

// prompt reads one trimmed line. "q" quits from any prompt.
func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := a.reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	if strings.EqualFold(line, quitKey) {
		return "", errQuit
	}
	return line, nil
}

func (a *app) pause(label string) error {
	_, err := a.prompt(label + " (q to quit) ")
	return err
}

func (a *app) confirm(label string) (bool, error) {
	line, err := a.prompt(label + " [y/N] ")
	if err != nil {
		return false, err
	}
	return strings.EqualFold(line, "y") || strings.EqualFold(line, "yes"), nil
}
